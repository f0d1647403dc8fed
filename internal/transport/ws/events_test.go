package ws

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/veil/internal/apperr"
)

func TestParseEvent(t *testing.T) {
	roomID := uuid.MustParse("5f0c6c2e-3a47-4a3c-9f39-7d7f6a2d1b10")
	maskID := uuid.MustParse("0b6d9a51-1e0f-4a43-b3a7-0c1cb1a3a9f2")
	uploadID := uuid.MustParse("a4e1f6b8-7c2d-4d9e-8f1a-2b3c4d5e6f70")

	tests := []struct {
		name    string
		frame   string
		want    any
		wantErr string
	}{
		{
			name:  "join room",
			frame: `{"type":"JOIN_ROOM","payload":{"roomId":"` + roomID.String() + `","maskId":"` + maskID.String() + `"}}`,
			want:  JoinRoom{RoomID: roomID, MaskID: maskID},
		},
		{
			name:  "send message with image only",
			frame: `{"type":"SEND_MESSAGE","payload":{"roomId":"` + roomID.String() + `","maskId":"` + maskID.String() + `","body":"","imageUploadId":"` + uploadID.String() + `"}}`,
			want:  SendMessage{RoomID: roomID, MaskID: maskID, ImageUploadID: &uploadID},
		},
		{
			name:  "send channel message ignores mask",
			frame: `{"type":"SEND_CHANNEL_MESSAGE","payload":{"channelId":"` + roomID.String() + `","body":"hi"}}`,
			want:  SendChannelMessage{ChannelID: roomID, Body: "hi"},
		},
		{
			name:  "ping without payload",
			frame: `{"type":"PING"}`,
			want:  Ping{},
		},
		{
			name:  "leave ignores payload",
			frame: `{"type":"LEAVE_DM","payload":{"threadId":"x"}}`,
			want:  LeaveDM{},
		},
		{
			name:    "not json",
			frame:   `hello`,
			wantErr: "malformed event",
		},
		{
			name:    "missing type",
			frame:   `{"payload":{}}`,
			wantErr: "malformed event",
		},
		{
			name:    "unknown type",
			frame:   `{"type":"DANCE"}`,
			wantErr: "unknown event type",
		},
		{
			name:    "missing payload",
			frame:   `{"type":"JOIN_DM"}`,
			wantErr: "JOIN_DM requires a payload",
		},
		{
			name:    "bad uuid",
			frame:   `{"type":"JOIN_CHANNEL","payload":{"channelId":"nope"}}`,
			wantErr: "invalid JOIN_CHANNEL payload",
		},
		{
			name:    "missing mask",
			frame:   `{"type":"JOIN_ROOM","payload":{"roomId":"` + roomID.String() + `"}}`,
			wantErr: "JOIN_ROOM: maskId is required",
		},
		{
			name:    "empty dm",
			frame:   `{"type":"SEND_DM","payload":{"threadId":"` + roomID.String() + `","maskId":"` + maskID.String() + `"}}`,
			wantErr: "SEND_DM: body or imageUploadId is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvent([]byte(tt.frame))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.KindValidation))
				assert.Equal(t, tt.wantErr, apperr.From(err).Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
