package delivery

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/twitchyvr/MycoLab-sub010/internal/models"
	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

// FirebaseService sends push notifications via FCM.
type FirebaseService struct {
	client *messaging.Client
	log    logger.Logger
}

func NewFirebaseService(ctx context.Context, projectID, credentialPath string, log logger.Logger) (*FirebaseService, error) {
	if projectID == "" || credentialPath == "" {
		return nil, fmt.Errorf("firebase credentials not configured")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsFile(credentialPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	log.Info("Firebase service initialized", "project_id", projectID)

	return &FirebaseService{
		client: client,
		log:    log,
	}, nil
}

// SendPush sends one push notification and returns the FCM message id.
func (f *FirebaseService) SendPush(ctx context.Context, msg PushMessage) (string, error) {
	if msg.Token == "" {
		return "", fmt.Errorf("no device token")
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: map[string]string{
			"category": string(msg.Category),
			"priority": string(msg.Priority),
		},
		Token: msg.Token,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority(msg.Priority),
			Notification: &messaging.AndroidNotification{
				Title: msg.Title,
				Body:  msg.Body,
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: msg.Title,
						Body:  msg.Body,
					},
					Sound: "default",
				},
			},
		},
	}

	messageID, err := f.client.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("fcm send failed: %w", err)
	}

	f.log.Debug("Push sent", "message_id", messageID)
	return messageID, nil
}

func androidPriority(p models.Priority) string {
	if p.Urgent() {
		return "high"
	}
	return "normal"
}
