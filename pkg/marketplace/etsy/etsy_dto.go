package etsy

// ==========================================
// DTO: 用于接收 Etsy API 返回的原始 JSON 数据
// ==========================================

// EtsyMoney Etsy 金额
type EtsyMoney struct {
	Amount       int    `json:"amount"`
	Divisor      int    `json:"divisor"`
	CurrencyCode string `json:"currency_code"`
}

// ToFloat 转换为浮点数
func (m EtsyMoney) ToFloat() float64 {
	if m.Divisor == 0 {
		return 0
	}
	return float64(m.Amount) / float64(m.Divisor)
}

// EtsyReceiptData Etsy 订单原始数据
// GET /v3/application/shops/{shop_id}/receipts
type EtsyReceiptData struct {
	ReceiptID        int64  `json:"receipt_id"`
	ReceiptType      int    `json:"receipt_type"`
	SellerUserID     int64  `json:"seller_user_id"`
	BuyerUserID      int64  `json:"buyer_user_id"`
	BuyerEmail       string `json:"buyer_email"`
	Name             string `json:"name"`
	FirstLine        string `json:"first_line"`
	SecondLine       string `json:"second_line"`
	City             string `json:"city"`
	State            string `json:"state"`
	Zip              string `json:"zip"`
	Status           string `json:"status"`
	FormattedAddress string `json:"formatted_address"`
	CountryISO       string `json:"country_iso"`
	PaymentMethod    string `json:"payment_method"`
	MessageFromBuyer string `json:"message_from_buyer"`
	IsPaid           bool   `json:"is_paid"`
	IsShipped        bool   `json:"is_shipped"`
	CreateTimestamp  int64  `json:"create_timestamp"`
	UpdateTimestamp  int64  `json:"update_timestamp"`
	IsGift           bool   `json:"is_gift"`
	GiftMessage      string `json:"gift_message"`

	GrandTotal        EtsyMoney `json:"grandtotal"`
	Subtotal          EtsyMoney `json:"subtotal"`
	TotalShippingCost EtsyMoney `json:"total_shipping_cost"`
	TotalTaxCost      EtsyMoney `json:"total_tax_cost"`

	Shipments    []EtsyShipmentData    `json:"shipments"`
	Transactions []EtsyTransactionData `json:"transactions"`
}

// EtsyReceiptsResp 订单列表响应
type EtsyReceiptsResp struct {
	Count   int               `json:"count"`
	Results []EtsyReceiptData `json:"results"`
}

// EtsyShipmentData Etsy 发货数据
type EtsyShipmentData struct {
	ReceiptShippingID             int64  `json:"receipt_shipping_id"`
	ShipmentNotificationTimestamp int64  `json:"shipment_notification_timestamp"`
	CarrierName                   string `json:"carrier_name"`
	TrackingCode                  string `json:"tracking_code"`
	Status                        string `json:"status"`
}

// EtsyTransactionData Etsy 交易数据（订单项）
type EtsyTransactionData struct {
	TransactionID    int64           `json:"transaction_id"`
	Title            string          `json:"title"`
	SKU              string          `json:"sku"`
	Quantity         int             `json:"quantity"`
	ListingID        int64           `json:"listing_id"`
	ProductID        int64           `json:"product_id"`
	ReceiptID        int64           `json:"receipt_id"`
	IsDigital        bool            `json:"is_digital"`
	CreateTimestamp  int64           `json:"create_timestamp"`
	PaidTimestamp    int64           `json:"paid_timestamp"`
	ShippedTimestamp int64           `json:"shipped_timestamp"`
	Price            EtsyMoney       `json:"price"`
	ShippingCost     EtsyMoney       `json:"shipping_cost"`
	Variations       []EtsyVariation `json:"variations"`
}

// EtsyVariation Etsy 变体
// 买家定制文本以 formatted_name = "Personalization" 的变体下发
type EtsyVariation struct {
	PropertyID     int64  `json:"property_id"`
	ValueID        int64  `json:"value_id"`
	FormattedName  string `json:"formatted_name"`
	FormattedValue string `json:"formatted_value"`
}

// EtsyErrorResp Etsy 通用错误响应
type EtsyErrorResp struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
