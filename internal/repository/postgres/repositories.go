package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/veil/internal/repository"
)

// NewRepositories wires every postgres repository onto one pool.
func NewRepositories(pool *pgxpool.Pool) repository.Repositories {
	return repository.Repositories{
		Users:    NewUserRepo(pool),
		Masks:    NewMaskRepo(pool),
		Friends:  NewFriendRepo(pool),
		Rooms:    NewRoomRepo(pool),
		Servers:  NewServerRepo(pool),
		Channels: NewChannelRepo(pool),
		DMs:      NewDMRepo(pool),
		Uploads:  NewUploadRepo(pool),
		Voice:    NewVoiceRepo(pool),
	}
}
