package model

import (
	"fmt"
	"strings"
)

type SubscriberStatus string

const (
	SubscriberStatusActive   SubscriberStatus = "active"
	SubscriberStatusInactive SubscriberStatus = "inactive"
)

func ParseSubscriberStatus(name string) (SubscriberStatus, error) {
	switch status := SubscriberStatus(strings.ToLower(strings.TrimSpace(name))); status {
	case SubscriberStatusActive, SubscriberStatusInactive:
		return status, nil
	default:
		return "", fmt.Errorf("invalid subscriber status: %q", name)
	}
}

func (s SubscriberStatus) String() string {
	return string(s)
}

type Subscriber struct {
	ID               string
	Email            string
	Status           SubscriberStatus
	UnsubscribeToken string
}
