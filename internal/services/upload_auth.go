package service

import (
	"time"

	"clipsify/internal/cdn"
	"clipsify/internal/metrics"

	"go.uber.org/zap"
)

// CredentialMinter is implemented by *cdn.Client.
type CredentialMinter interface {
	Credentials(ttl time.Duration) (*cdn.Credentials, error)
}

// UploadAuthIssuer hands out short-lived direct-upload credentials.
type UploadAuthIssuer struct {
	minter CredentialMinter
	ttl    time.Duration
	log    *zap.Logger
}

func NewUploadAuthIssuer(minter CredentialMinter, ttl time.Duration, log *zap.Logger) *UploadAuthIssuer {
	return &UploadAuthIssuer{minter: minter, ttl: ttl, log: log}
}

func (i *UploadAuthIssuer) Issue() (*cdn.Credentials, error) {
	creds, err := i.minter.Credentials(i.ttl)
	if err != nil {
		i.log.Error("upload credentials", zap.Error(err))
		return nil, err
	}
	metrics.UploadAuthIssued.Inc()
	return creds, nil
}
