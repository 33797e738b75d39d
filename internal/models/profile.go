package models

import "fmt"

// ProfileHandle identifies a started remote browser profile.
// The debug port is the only capability needed to attach an automation client.
type ProfileHandle struct {
	ProfileID string `json:"profile_id"`
	DebugPort int    `json:"debug_port"`
}

// DebugURL returns the remote debugging endpoint for the handle
func (h ProfileHandle) DebugURL(host string) string {
	if host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, h.DebugPort)
}

// ProfileDescriptor is a profile entry as listed by the control plane
type ProfileDescriptor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Group  string `json:"group,omitempty"`
	Status string `json:"status,omitempty"` // "running", "stopped", ...
}

// WindowBounds is the on-screen geometry for a visible browser window
type WindowBounds struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}
