package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rintaro216/hokkaido-community-app/auth"
	apperrors "github.com/rintaro216/hokkaido-community-app/errors"
	"github.com/rintaro216/hokkaido-community-app/kvstore"
	"github.com/rintaro216/hokkaido-community-app/logging"
	"github.com/rintaro216/hokkaido-community-app/network"
	"github.com/rintaro216/hokkaido-community-app/outbox"
	"github.com/rintaro216/hokkaido-community-app/storage"
	"github.com/rintaro216/hokkaido-community-app/types"
)

func main() {
	logging.Init(logging.GetConfigFromEnv())
	ctx := context.Background()

	path := os.Getenv("APP_DB_PATH")
	if path == "" {
		path = "file:appdata.db"
	}

	store, err := kvstore.NewSQLiteWithPath(path)
	if err != nil {
		logging.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	recorder := apperrors.NewRecorder()
	repo := storage.New(store, logging.Default(), recorder)
	sessions := auth.New(repo, logging.Default())
	queue := outbox.New(store, logging.Default(), recorder)
	net := network.New(nil, logging.Default(), recorder)
	net.Initialize(ctx)

	user, err := sessions.LoginAsGuest(ctx, "ゲスト旅人")
	if err != nil {
		logging.Error("guest login failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.Info("logged in as guest",
		slog.String("user_id", user.ID),
		slog.String("name", user.Name),
	)

	entry, err := queue.Add(ctx, types.Post{
		UserID:     user.ID,
		Content:    "美瑛の丘からの眺めが最高でした",
		PostType:   types.PostStatus,
		Region:     types.RegionDoou,
		Tags:       []string{"美瑛", "ドライブ"},
		Visibility: types.VisibilityPublic,
	})
	if err != nil {
		logging.Error("failed to queue post", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.Info("post queued offline", slog.String("post_id", entry.ID))

	syncer := network.NewSyncer(net, queue, logging.Default())
	result := syncer.Sync(ctx)
	logging.Info("sync finished",
		slog.Int("synced", result.Synced),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", result.Duration),
	)

	for _, pending := range queue.Pending(ctx) {
		fmt.Printf("still pending: %s (%s)\n", pending.ID, pending.Content)
	}

	snapshot, err := repo.ExportAllData(ctx)
	if err != nil {
		logging.Error("export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.Info("exported snapshot",
		slog.Int("bytes", len(snapshot)),
		slog.Time("at", time.Now()),
	)
}
