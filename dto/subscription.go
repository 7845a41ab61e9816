package dto

import "time"

type SubscriptionStatus struct {
	Subscribed      bool       `json:"subscribed"`
	ProductID       string     `json:"product_id,omitempty"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
	PriceMonthly    float64    `json:"price_monthly"`
	PriceYearly     float64    `json:"price_yearly"`
}

// SyncSubscriptionRequest is sent by the billing webhook.
type SyncSubscriptionRequest struct {
	UserID          string     `json:"user_id" validate:"required"`
	Subscribed      bool       `json:"subscribed"`
	ProductID       string     `json:"product_id" validate:"required_if=Subscribed true"`
	SubscriptionEnd *time.Time `json:"subscription_end"`
}
