package api

import (
	"context"
	"net/url"

	"github.com/roomtone/roomtone-go/pkg/model"
)

// ZoneRequest creates or replaces a zone's membership.
type ZoneRequest struct {
	// ClientIDs are the member target identities.
	ClientIDs []string `json:"client_ids"`

	// Name is the optional display name.
	Name string `json:"name,omitempty"`

	// Source designates the member whose current parameter values are
	// copied to the others when the zone forms.
	Source string `json:"source,omitempty"`
}

// zoneReply is the reply to zone creation.
type zoneReply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ZoneID  string `json:"zone_id,omitempty"`
}

// CreateZone creates a zone with the given membership and returns its ID.
func (c *Client) CreateZone(ctx context.Context, req ZoneRequest) (string, error) {
	var reply zoneReply
	err := c.doJSON(ctx, "POST", "/api/v1/zones", req, &reply)
	c.logRequest("", "create_zone", err)
	if err != nil {
		return "", err
	}
	if !reply.Success {
		return "", &StatusError{Message: reply.Message}
	}
	return reply.ZoneID, nil
}

// ReplaceZoneMembers replaces the membership of an existing zone.
func (c *Client) ReplaceZoneMembers(ctx context.Context, zoneID string, req ZoneRequest) error {
	err := c.doWrite(ctx, "PUT", "/api/v1/zones/"+url.PathEscape(zoneID), req)
	c.logRequest("", "replace_zone", err)
	return err
}

// RemoveZoneMember removes one target from its zone.
func (c *Client) RemoveZoneMember(ctx context.Context, zoneID string, target model.TargetID) error {
	path := "/api/v1/zones/" + url.PathEscape(zoneID) + "/members/" + url.PathEscape(string(target))
	err := c.doWrite(ctx, "DELETE", path, nil)
	c.logRequest(target, "remove_zone_member", err)
	return err
}

// DeleteZone dissolves a zone outright.
func (c *Client) DeleteZone(ctx context.Context, zoneID string) error {
	err := c.doWrite(ctx, "DELETE", "/api/v1/zones/"+url.PathEscape(zoneID), nil)
	c.logRequest("", "delete_zone", err)
	return err
}

// RenameZone changes a zone's display name.
func (c *Client) RenameZone(ctx context.Context, zoneID, name string) error {
	body := struct {
		Name string `json:"name"`
	}{Name: name}
	err := c.doWrite(ctx, "PATCH", "/api/v1/zones/"+url.PathEscape(zoneID), body)
	c.logRequest("", "rename_zone", err)
	return err
}
