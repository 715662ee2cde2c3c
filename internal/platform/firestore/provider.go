// Package firestore owns the shared Firestore client and translates backend
// errors into repository semantics.
package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config carries the parameters needed to reach Firestore.
type Config struct {
	ProjectID    string
	EmulatorHost string
}

// NewClient dials Firestore for the configured project. When an emulator host
// is set the client connects without authentication over plaintext gRPC.
func NewClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*firestore.Client, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}

	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		opts = append(opts,
			option.WithEndpoint(host),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	return firestore.NewClient(ctx, projectID, opts...)
}
