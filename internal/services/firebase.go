package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var (
	// FirebaseApp is the Firebase app instance
	FirebaseApp *firebase.App
	// MessagingClient is the Firebase Cloud Messaging client
	MessagingClient *messaging.Client
)

// InitFirebase initializes Firebase Admin SDK
func InitFirebase() error {
	ctx := context.Background()

	serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
	if serviceAccountPath == "" {
		log.Println("Warning: FIREBASE_SERVICE_ACCOUNT_PATH not set. Push notifications will be disabled.")
		return nil
	}

	opt := option.WithCredentialsFile(serviceAccountPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing firebase app: %v", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("error getting messaging client: %v", err)
	}

	FirebaseApp = app
	MessagingClient = client

	log.Println("Firebase Cloud Messaging initialized successfully")
	return nil
}

// NotificationPayload represents the notification data
type NotificationPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

func toDataStrings(data map[string]interface{}) map[string]string {
	dataStrings := make(map[string]string)
	for key, value := range data {
		switch v := value.(type) {
		case string:
			dataStrings[key] = v
		case int, int64, float64, bool:
			dataStrings[key] = fmt.Sprintf("%v", v)
		default:
			jsonData, err := json.Marshal(v)
			if err != nil {
				log.Printf("Error marshaling data for key %s: %v", key, err)
				continue
			}
			dataStrings[key] = string(jsonData)
		}
	}
	return dataStrings
}

// SendNotificationToToken sends a notification to a specific FCM token
func SendNotificationToToken(ctx context.Context, token string, payload NotificationPayload) error {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping notification.")
		return nil
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:  toDataStrings(payload.Data),
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:                 "default",
				ChannelID:             "campusgo_default",
				DefaultSound:          true,
				DefaultVibrateTimings: true,
			},
		},
	}

	response, err := MessagingClient.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending message: %v", err)
	}

	log.Printf("Successfully sent notification, response: %s", response)
	return nil
}

// SendNotificationToMultipleTokens sends a notification to multiple FCM tokens
func SendNotificationToMultipleTokens(ctx context.Context, tokens []string, payload NotificationPayload) (*messaging.BatchResponse, error) {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping notifications.")
		return nil, nil
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens provided")
	}

	message := &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:   toDataStrings(payload.Data),
		Tokens: tokens,
	}

	response, err := MessagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("error sending multicast message: %v", err)
	}

	log.Printf("Successfully sent %d messages, %d failures", response.SuccessCount, response.FailureCount)
	if response.FailureCount > 0 {
		for idx, resp := range response.Responses {
			if !resp.Success {
				log.Printf("Failed to send to token %s: %v", tokens[idx], resp.Error)
			}
		}
	}
	return response, nil
}

// SendRideRequestNotification alerts drivers about a new request.
func SendRideRequestNotification(ctx context.Context, driverTokens []string, rideID, pickup, destination string, fare float64) error {
	payload := NotificationPayload{
		Title: "New Ride Request",
		Body:  fmt.Sprintf("%s to %s for INR %.0f", pickup, destination, fare),
		Data: map[string]interface{}{
			"type":   "ride_request",
			"rideId": rideID,
			"fare":   fare,
		},
	}
	_, err := SendNotificationToMultipleTokens(ctx, driverTokens, payload)
	return err
}

// SendRideAcceptedNotification tells the rider a driver is coming.
func SendRideAcceptedNotification(ctx context.Context, riderToken, rideID, driverName string, eta int) error {
	payload := NotificationPayload{
		Title: "Ride Accepted!",
		Body:  fmt.Sprintf("%s accepted your ride request. ETA: %d minutes", driverName, eta),
		Data: map[string]interface{}{
			"type":   "ride_accepted",
			"rideId": rideID,
			"eta":    eta,
		},
	}
	return SendNotificationToToken(ctx, riderToken, payload)
}

// SendRideCompletedNotification tells the rider the ride settled.
func SendRideCompletedNotification(ctx context.Context, riderToken, rideID string, fare float64) error {
	payload := NotificationPayload{
		Title: "Ride Completed",
		Body:  fmt.Sprintf("Your ride is complete. Total fare: INR %.0f", fare),
		Data: map[string]interface{}{
			"type":   "ride_completed",
			"rideId": rideID,
			"fare":   fare,
		},
	}
	return SendNotificationToToken(ctx, riderToken, payload)
}
