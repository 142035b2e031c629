// Package domain holds the shared value types and error sentinels. It
// imports nothing from the rest of the module so every layer can depend on it.
package domain

import "time"

// User is a registered rider. PasswordHash never leaves the identity layer.
type User struct {
	ID            string    `json:"UserId"`
	Email         string    `json:"Email"`
	EmailVerified bool      `json:"-"`
	PasswordHash  string    `json:"-"`
	CreatedAt     time.Time `json:"-"`
}

// ClientApp is the registered public application allowed to request tokens.
// Its ID doubles as the required token audience.
type ClientApp struct {
	ID   string
	Name string
}

// Location is a WGS84 coordinate pair. Field names follow the wire contract.
type Location struct {
	Latitude  float64 `json:"Latitude" yaml:"latitude"`
	Longitude float64 `json:"Longitude" yaml:"longitude"`
}

// Unicorn is one fleet member. Gender stays internal; the wire payload
// carries name and color only.
type Unicorn struct {
	Name   string `json:"Name" yaml:"name"`
	Color  string `json:"Color" yaml:"color"`
	Gender string `json:"-" yaml:"gender"`
}

// Ride is the durable ledger record. RiderID always comes from a validated
// token subject, never from the request body.
type Ride struct {
	RideID         string    `json:"RideId"`
	RiderID        string    `json:"RiderId"`
	PickupLocation Location  `json:"PickupLocation"`
	Unicorn        Unicorn   `json:"Unicorn"`
	RequestTime    time.Time `json:"RequestTime"`
}
