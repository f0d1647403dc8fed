// Package livekit adapts a LiveKit server to the voice.SFU port.
package livekit

import (
	"context"
	"fmt"

	lkauth "github.com/livekit/protocol/auth"
	lkproto "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/vedran77/veil/internal/voice"
)

type Client struct {
	rooms     *lksdk.RoomServiceClient
	apiKey    string
	apiSecret string
}

func New(url, apiKey, apiSecret string) *Client {
	return &Client{
		rooms:     lksdk.NewRoomServiceClient(url, apiKey, apiSecret),
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

func (c *Client) DeleteRoom(ctx context.Context, room string) error {
	if _, err := c.rooms.DeleteRoom(ctx, &lkproto.DeleteRoomRequest{Room: room}); err != nil {
		return fmt.Errorf("deleting room %s: %w", room, err)
	}
	return nil
}

func (c *Client) ListParticipants(ctx context.Context, room string) ([]voice.Participant, error) {
	res, err := c.rooms.ListParticipants(ctx, &lkproto.ListParticipantsRequest{Room: room})
	if err != nil {
		return nil, fmt.Errorf("listing participants of %s: %w", room, err)
	}
	out := make([]voice.Participant, 0, len(res.GetParticipants()))
	for _, p := range res.GetParticipants() {
		out = append(out, voice.Participant{Identity: p.GetIdentity(), Metadata: p.GetMetadata()})
	}
	return out, nil
}

func (c *Client) UpdateParticipant(ctx context.Context, room, identity string, perm voice.Permission) error {
	_, err := c.rooms.UpdateParticipant(ctx, &lkproto.UpdateParticipantRequest{
		Room:     room,
		Identity: identity,
		Permission: &lkproto.ParticipantPermission{
			CanPublish:     perm.CanPublish,
			CanSubscribe:   perm.CanSubscribe,
			CanPublishData: perm.CanPublishData,
		},
	})
	if err != nil {
		return fmt.Errorf("updating participant %s: %w", identity, err)
	}
	return nil
}

// IssueToken signs a room-join token locally; no request reaches the server.
func (c *Client) IssueToken(g voice.Grant) (string, error) {
	grant := &lkauth.VideoGrant{RoomJoin: true, Room: g.Room}
	grant.SetCanPublish(g.Permission.CanPublish)
	grant.SetCanSubscribe(g.Permission.CanSubscribe)
	grant.SetCanPublishData(g.Permission.CanPublishData)

	token, err := lkauth.NewAccessToken(c.apiKey, c.apiSecret).
		SetVideoGrant(grant).
		SetIdentity(g.Identity).
		SetName(g.Name).
		SetMetadata(g.Metadata).
		SetValidFor(g.TTL).
		ToJWT()
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}
