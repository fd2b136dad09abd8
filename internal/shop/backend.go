// Package shop holds the storefront's client-side rules: quantity stepping, loyalty redemption
// arithmetic, navigation targets and the view models decoded from backend RPC payloads.
package shop

import (
	"context"
)

// Caller invokes named backend RPC methods. *rpc.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, method string, args any, out any) error
}

// Doctypes and settings fields read by the storefront.
const (
	DocTypeWebshopSettings = "Webshop Settings"
	DocTypeSalesOrder      = "Sales Order"
	DocTypeItem            = "Item"
	DocTypeWebsiteItem     = "Website Item"

	FieldProductsPerPage       = "products_per_page"
	FieldPaymentGatewayAccount = "payment_gateway_account"
	FieldPaymentSuccessURL     = "payment_success_url"
)
