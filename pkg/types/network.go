package types

// Quality buckets network strength into coarse categories
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityPoor      Quality = "poor"
	QualityNone      Quality = "none"
)

// ConnectionStatus is the three-valued status derived from a snapshot
type ConnectionStatus string

const (
	StatusOnline  ConnectionStatus = "online"
	StatusLimited ConnectionStatus = "limited"
	StatusOffline ConnectionStatus = "offline"
)

// NetworkInfo is a point-in-time snapshot of network reachability
type NetworkInfo struct {
	Connected         bool    `json:"connected"`
	Transport         string  `json:"transport"` // "wifi", "cellular", "ethernet", ...
	InternetReachable *bool   `json:"internetReachable"`
	Quality           Quality `json:"quality"`
}

// NetworkEvent is what a connectivity source reports on change
type NetworkEvent struct {
	Connected         bool   `json:"connected"`
	Transport         string `json:"transport"`
	InternetReachable *bool  `json:"internetReachable"`
	SignalStrength    *int   `json:"signalStrength,omitempty"` // cellular only, 0-100
}
