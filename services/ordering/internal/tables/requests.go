package tables

import "encoding/json"

// Payload decoders

type OpenTableRequest struct {
	// TableNumber accepts both 12 and "12".
	TableNumber json.Number `json:"table_number"`
}

type ChooseModeRequest struct {
	Mode string `json:"mode"`
}

type AddItemRequest struct {
	DishID   string `json:"dish_id"`
	Quantity int    `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity *int `json:"quantity"`
}

type PayRequest struct {
	CustomersCount int    `json:"customers_count,omitempty"`
	DeviceType     string `json:"device_type,omitempty"`
}

type PickDishRequest struct {
	DishID string `json:"dish_id"`
}

type UnpickRequest struct {
	Course string `json:"course"`
}

type SelectRewardRequest struct {
	RewardID string `json:"reward_id"`
}

type RushResetRequest struct {
	Operator string `json:"operator,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
