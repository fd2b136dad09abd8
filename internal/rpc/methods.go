package rpc

// Backend method names.
const (
	MethodGetCartQuotation     = "webshop.webshop.shopping_cart.cart.get_cart_quotation"
	MethodUpdateCart           = "webshop.webshop.shopping_cart.cart.update_cart"
	MethodApplyShippingRule    = "webshop.webshop.shopping_cart.cart.apply_shipping_rule"
	MethodPlaceOrder           = "webshop.webshop.shopping_cart.cart.place_order"
	MethodRequestForQuotation  = "webshop.webshop.shopping_cart.cart.request_for_quotation"
	MethodApplyCouponCode      = "webshop.webshop.shopping_cart.cart.apply_coupon_code"
	MethodMakeWebsiteItem      = "webshop.webshop.doctype.website_item.website_item.make_website_item"
	MethodGetRedemptionFactor  = "erpnext.accounts.doctype.loyalty_program.loyalty_program.get_redeemption_factor"
	MethodGetSingleValue       = "frappe.client.get_single_value"
	MethodGetValue             = "frappe.client.get_value"
	MethodGet                  = "frappe.client.get"
	MethodGetList              = "frappe.client.get_list"
	MethodGetProductFilterData = "webshop.webshop.api.get_product_filter_data"
	MethodGetProductInfo       = "webshop.webshop.shopping_cart.product_info.get_product_info_for_website"
	MethodAddToWishlist        = "webshop.webshop.wishlist.add_to_wishlist"
	MethodRemoveFromWishlist   = "webshop.webshop.wishlist.remove_from_wishlist"
)
