package kvstore

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"
)

// Valkey is the durable Backend, persisting keys in a Valkey instance.
type Valkey struct {
	client valkey.Client
}

// NewValkey connects to the Valkey instance at addr.
func NewValkey(addr string) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Valkey{client: client}, nil
}

func (v *Valkey) Put(ctx context.Context, key, value string) error {
	cmd := v.client.Do(ctx, v.client.B().Set().Key(key).Value(value).Build())
	return cmd.Error()
}

func (v *Valkey) Get(ctx context.Context, key string) (string, error) {
	cmd := v.client.Do(ctx, v.client.B().Get().Key(key).Build())
	if err := cmd.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return cmd.ToString()
}

// Close releases the client.
func (v *Valkey) Close() {
	v.client.Close()
}
