// Package handler contains the HTTP handlers for the PayBridge API: order
// registration, hosted payment forms, gateway callbacks and the back-office
// payment operations.
package handler
