package service

import (
	"github.com/dukerupert/mercato/internal/domain"
)

// Store errors
var (
	ErrStoreNotFound       = domain.Errorf(domain.ENOTFOUND, "", "Store not found")
	ErrNoActiveStore       = domain.Errorf(domain.ENOTFOUND, "", "No active store")
	ErrUserNotFound        = domain.Errorf(domain.ENOTFOUND, "", "User not found")
	ErrStoreAccountMissing = domain.Errorf(domain.EINVALID, "", "Store has no connected account")
)

// Catalog errors
var (
	ErrProductNotFound  = domain.Errorf(domain.ENOTFOUND, "", "Product not found")
	ErrPriceNotFound    = domain.Errorf(domain.ENOTFOUND, "", "Price not found")
	ErrProductArchived  = domain.Errorf(domain.EINVALID, "", "Product is archived")
	ErrPriceArchived    = domain.Errorf(domain.EINVALID, "", "Price is archived")
	ErrProductNotSynced = domain.Errorf(domain.EINVALID, "", "Product has no provider product")
)

// Discount errors
var (
	ErrDiscountNotFound      = domain.Errorf(domain.ENOTFOUND, "", "Discount not found")
	ErrDiscountCodeExists    = domain.Errorf(domain.ECONFLICT, "", "Discount code already exists in this store")
	ErrDiscountNotRedeemable = domain.Errorf(domain.EINVALID, "", "Discount is not redeemable")
	ErrAlreadyRedeemed       = domain.Errorf(domain.ECONFLICT, "", "Discount already redeemed for this checkout")
)

// Checkout errors
var (
	ErrCheckoutNotFound = domain.Errorf(domain.ENOTFOUND, "", "Checkout not found")
)

// Billing errors
var (
	ErrCustomerNotFound      = domain.Errorf(domain.ENOTFOUND, "", "Customer not found")
	ErrMissingLatestInvoice  = domain.Errorf(domain.EPROVIDER, "", "Subscription has no latest invoice")
	ErrMultiItemSubscription = domain.Errorf(domain.EINVALID, "", "Price migration requires a single-item subscription")
)
