package models

import (
	"encoding/json"
	"time"
)

// PlatformSettings is the singleton settings row (id = 1).
type PlatformSettings struct {
	SiteName           string          `json:"siteName"`
	SupportEmail       string          `json:"supportEmail"`
	MaintenanceMode    bool            `json:"maintenanceMode"`
	AllowRegistrations bool            `json:"allowRegistrations"`
	DefaultCurrency    string          `json:"defaultCurrency"`
	SubscriptionPrice  int             `json:"subscriptionPrice"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}
