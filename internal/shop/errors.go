package shop

import "errors"

// GenericFailureMessage is shown when the backend fails without a message of its own.
const GenericFailureMessage = "Something went wrong!"

// WebsiteItemNotFoundMessage is shown when an item has no website listing.
const WebsiteItemNotFoundMessage = "Website Item not found"

var (
	// ErrInvalidQuantity indicates a quantity that is not an integer.
	ErrInvalidQuantity = errors.New("shop: invalid quantity")
	// ErrInvalidInput indicates a request payload that failed validation.
	ErrInvalidInput = errors.New("shop: invalid input")
	// ErrInvalidViewMode indicates an unknown product view mode.
	ErrInvalidViewMode = errors.New("shop: invalid view mode")
	// ErrWebsiteItemNotFound indicates that no website item exists for an item.
	ErrWebsiteItemNotFound = errors.New("shop: website item not found")
	// ErrNoRedemptionFactor indicates the customer has no loyalty program.
	ErrNoRedemptionFactor = errors.New("shop: no loyalty redemption factor")
	// ErrEmptyRecordName indicates the backend accepted a request but returned no record name.
	ErrEmptyRecordName = errors.New("shop: backend returned no record name")
)
