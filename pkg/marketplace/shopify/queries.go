package shopify

// OrdersSinceQuery 拉取 updated_at 之后有更新的订单
// query 参数必须是字符串字面量，由调用方 fmt.Sprintf 组装
const OrdersSinceQuery = `
query listOrders($first: Int!, $after: String, $query: String!) {
  orders(first: $first, after: $after, query: $query, sortKey: UPDATED_AT) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        legacyResourceId
        name
        displayFulfillmentStatus
        createdAt
        updatedAt
        customer {
          displayName
          email
        }
        shippingAddress {
          name
          address1
          address2
          city
          provinceCode
          zip
          countryCodeV2
          phone
        }
        lineItems(first: 50) {
          edges {
            node {
              id
              title
              sku
              quantity
              customAttributes {
                key
                value
              }
            }
          }
        }
        fulfillments(first: 10) {
          legacyResourceId
          status
          createdAt
          trackingInfo(first: 5) {
            number
            company
            url
          }
        }
      }
    }
  }
}
`

// OrderFulfillmentsQuery 拉取单个订单的发货记录
const OrderFulfillmentsQuery = `
query getOrderFulfillments($id: ID!) {
  order(id: $id) {
    id
    fulfillments(first: 10) {
      legacyResourceId
      status
      createdAt
      trackingInfo(first: 5) {
        number
        company
        url
      }
    }
  }
}
`

// FulfillmentTrackingUpdateMutation 回传面单号
const FulfillmentTrackingUpdateMutation = `
mutation updateTracking($fulfillmentId: ID!, $trackingInfoInput: FulfillmentTrackingInput!) {
  fulfillmentTrackingInfoUpdate(
    fulfillmentId: $fulfillmentId
    trackingInfoInput: $trackingInfoInput
    notifyCustomer: false
  ) {
    fulfillment {
      id
    }
    userErrors {
      field
      message
    }
  }
}
`
