package db

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/g960059/tiledash/internal/model"
)

// LaunchLog persists activation records. Write failures are logged and dropped.
type LaunchLog struct {
	store   *Store
	logger  *log.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewLaunchLog(store *Store, logger *log.Logger, timeout time.Duration) *LaunchLog {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &LaunchLog{
		store:   store,
		logger:  logger,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (l *LaunchLog) RecordLaunch(component string) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if _, err := l.store.RecordLaunch(ctx, component, l.now()); err != nil {
		l.logger.Printf("record launch %s: %v", component, err)
	}
}

// PackageSet is an in-memory snapshot of installed packages.
type PackageSet map[string]struct{}

func (p PackageSet) Installed(pkg string) bool {
	_, ok := p[pkg]
	return ok
}

// ProfileSet is an in-memory snapshot of existing user profiles.
type ProfileSet map[model.UserHandle]struct{}

func (p ProfileSet) Exists(user model.UserHandle) bool {
	_, ok := p[user]
	return ok
}

// PackageSnapshot returns nil when no package has been registered, meaning "do not filter".
func (s *Store) PackageSnapshot(ctx context.Context) (PackageSet, error) {
	pkgs, err := s.listPackages(ctx)
	if err != nil || len(pkgs) == 0 {
		return nil, err
	}
	out := make(PackageSet, len(pkgs))
	for _, pkg := range pkgs {
		out[pkg] = struct{}{}
	}
	return out, nil
}

// ProfileSnapshot returns nil when no profile has been registered, meaning "do not filter".
func (s *Store) ProfileSnapshot(ctx context.Context) (ProfileSet, error) {
	profiles, err := s.ListProfiles(ctx)
	if err != nil || len(profiles) == 0 {
		return nil, err
	}
	out := make(ProfileSet, len(profiles))
	for _, p := range profiles {
		out[p.User] = struct{}{}
	}
	return out, nil
}
