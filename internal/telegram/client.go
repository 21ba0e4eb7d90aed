package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/session"
	tgclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

// The reaction set left enabled when a chat opts out of all reactions.
var allowedReactions = []string{"🔥", "😢", "👎", "👍", "❤", "🐳"}

// Client implements Platform over MTProto. The Bot API cannot create
// channels, toggle slow mode or manage dialog folders, so convergence runs
// under a regular user account session.
//
// Lifecycle is two-phase: NewClient returns immediately, Start launches the
// connection and Ready is closed once the account is authorized. The client
// must not be handed to the engine before Ready.
type Client struct {
	client *tgclient.Client
	api    *tg.Client

	ready chan struct{}
	done  chan error
	stop  context.CancelFunc
}

func NewClient(apiID int, apiHash, sessionFile string) *Client {
	c := &Client{
		ready: make(chan struct{}),
		done:  make(chan error, 1),
	}
	c.client = tgclient.NewClient(apiID, apiHash, tgclient.Options{
		SessionStorage: &session.FileStorage{Path: sessionFile},
	})
	return c
}

// Start connects in the background. The returned error channel from Close
// carries the final connection error, if any.
func (c *Client) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.stop = cancel

	go func() {
		c.done <- c.client.Run(runCtx, func(ctx context.Context) error {
			status, err := c.client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("auth status: %w", err)
			}
			if !status.Authorized {
				return fmt.Errorf("telegram session is not authorized; log the account in first")
			}

			c.api = c.client.API()
			close(c.ready)

			<-ctx.Done()
			return ctx.Err()
		})
	}()
}

// Ready is closed once the client is connected and authorized.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Close stops the connection and waits for the run loop to exit.
func (c *Client) Close() error {
	if c.stop == nil {
		return nil
	}
	c.stop()
	err := <-c.done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Client) Get(ctx context.Context, ref Ref) (*Snapshot, error) {
	full, err := c.api.ChannelsGetFullChannel(ctx, inputChannel(ref))
	if err != nil {
		return nil, translateError(err)
	}

	channelFull, ok := full.FullChat.(*tg.ChannelFull)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected full chat %T", ErrUnavailable, full.FullChat)
	}

	snapshot := &Snapshot{
		Ref:         ref,
		Description: channelFull.About,
	}

	for _, chat := range full.Chats {
		if channel, ok := chat.(*tg.Channel); ok && channel.ID == ref.ID {
			snapshot.Title = channel.Title
			snapshot.Broadcast = channel.Broadcast
			break
		}
	}

	if seconds, ok := channelFull.GetSlowmodeSeconds(); ok {
		snapshot.SlowModeSeconds = seconds
	}
	if reactions, ok := channelFull.GetAvailableReactions(); ok {
		if _, all := reactions.(*tg.ChatReactionsAll); all {
			snapshot.AllReactions = true
		}
	}
	if invite, ok := channelFull.GetExportedInvite(); ok {
		if exported, ok := invite.(*tg.ChatInviteExported); ok {
			snapshot.InviteLink = exported.Link
		}
	}

	return snapshot, nil
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	updates, err := c.api.ChannelsCreateChannel(ctx, &tg.ChannelsCreateChannelRequest{
		Title:     req.Title,
		About:     req.Description,
		Broadcast: req.Broadcast,
		Megagroup: !req.Broadcast,
	})
	if err != nil {
		return nil, translateError(err)
	}

	channel := createdChannel(updates)
	if channel == nil {
		return nil, fmt.Errorf("%w: create returned no channel", ErrUnavailable)
	}
	ref := Ref{ID: channel.ID, AccessHash: channel.AccessHash}

	if !req.Broadcast {
		// Groups get restricted defaults; members chat but do not touch
		// the chat object itself.
		_, err := c.api.MessagesEditChatDefaultBannedRights(ctx, &tg.MessagesEditChatDefaultBannedRightsRequest{
			Peer: inputPeer(ref),
			BannedRights: tg.ChatBannedRights{
				SendStickers: true,
				SendGifs:     true,
				SendGames:    true,
				SendInline:   true,
				ChangeInfo:   true,
				PinMessages:  true,
			},
		})
		if err != nil {
			// The half-configured group must not outlive the failure.
			if deleteErr := c.Delete(ctx, ref); deleteErr != nil {
				return nil, fmt.Errorf("configuring created channel: %w (cleanup failed: %v)", translateError(err), deleteErr)
			}
			return nil, translateError(err)
		}
	}

	created := &Created{Ref: ref}
	if invite, err := c.api.MessagesExportChatInvite(ctx, &tg.MessagesExportChatInviteRequest{
		Peer: inputPeer(ref),
	}); err == nil {
		if exported, ok := invite.(*tg.ChatInviteExported); ok {
			created.InviteLink = exported.Link
		}
	}

	return created, nil
}

func (c *Client) Update(ctx context.Context, req UpdateRequest) error {
	if req.AllReactions != nil {
		var reactions tg.ChatReactionsClass
		if *req.AllReactions {
			reactions = &tg.ChatReactionsAll{}
		} else {
			some := &tg.ChatReactionsSome{}
			for _, emoticon := range allowedReactions {
				some.Reactions = append(some.Reactions, &tg.ReactionEmoji{Emoticon: emoticon})
			}
			reactions = some
		}
		_, err := c.api.MessagesSetChatAvailableReactions(ctx, &tg.MessagesSetChatAvailableReactionsRequest{
			Peer:               inputPeer(req.Ref),
			AvailableReactions: reactions,
		})
		if err := ignoreNotModified(err); err != nil {
			return translateError(err)
		}
	}

	if req.Title != nil {
		_, err := c.api.ChannelsEditTitle(ctx, &tg.ChannelsEditTitleRequest{
			Channel: inputChannel(req.Ref),
			Title:   *req.Title,
		})
		if err := ignoreNotModified(err); err != nil {
			return translateError(err)
		}
	}

	if req.Description != nil {
		_, err := c.api.MessagesEditChatAbout(ctx, &tg.MessagesEditChatAboutRequest{
			Peer:  inputPeer(req.Ref),
			About: *req.Description,
		})
		if err := ignoreNotModified(err); err != nil {
			return translateError(err)
		}
	}

	if req.SlowModeSeconds != nil {
		_, err := c.api.ChannelsToggleSlowMode(ctx, &tg.ChannelsToggleSlowModeRequest{
			Channel: inputChannel(req.Ref),
			Seconds: *req.SlowModeSeconds,
		})
		if err := ignoreNotModified(err); err != nil {
			return translateError(err)
		}
	}

	return nil
}

func (c *Client) Delete(ctx context.Context, ref Ref) error {
	_, err := c.api.ChannelsDeleteChannel(ctx, inputChannel(ref))
	if err == nil {
		return nil
	}
	err = translateError(err)
	if errors.Is(err, ErrNotFound) {
		// Already gone; deletion is idempotent.
		return nil
	}
	return err
}

func (c *Client) UpdateFolder(ctx context.Context, title string, refs []Ref) error {
	filters, err := c.api.MessagesGetDialogFilters(ctx)
	if err != nil {
		return translateError(err)
	}

	var existing []Folder
	for _, filter := range filters.Filters {
		// Skips the default "All chats" filter, which has no id.
		if dialogFilter, ok := filter.(*tg.DialogFilter); ok {
			existing = append(existing, Folder{ID: dialogFilter.ID, Title: dialogFilter.Title})
		}
	}
	folderID := AssignFolderID(existing, title)

	// Telegram rejects a folder with an empty include list, so an emptied
	// folder keeps a self-reference placeholder instead.
	peers := make([]tg.InputPeerClass, 0, len(refs))
	if len(refs) == 0 {
		peers = append(peers, &tg.InputPeerSelf{})
	}
	for _, ref := range refs {
		peers = append(peers, inputPeer(ref))
	}

	_, err = c.api.MessagesUpdateDialogFilter(ctx, &tg.MessagesUpdateDialogFilterRequest{
		ID: folderID,
		Filter: &tg.DialogFilter{
			ID:           folderID,
			Title:        title,
			PinnedPeers:  []tg.InputPeerClass{},
			IncludePeers: peers,
			ExcludePeers: []tg.InputPeerClass{},
		},
	})
	return translateError(err)
}

func inputChannel(ref Ref) *tg.InputChannel {
	return &tg.InputChannel{ChannelID: ref.ID, AccessHash: ref.AccessHash}
}

func inputPeer(ref Ref) *tg.InputPeerChannel {
	return &tg.InputPeerChannel{ChannelID: ref.ID, AccessHash: ref.AccessHash}
}

func createdChannel(updates tg.UpdatesClass) *tg.Channel {
	var chats []tg.ChatClass
	switch u := updates.(type) {
	case *tg.Updates:
		chats = u.Chats
	case *tg.UpdatesCombined:
		chats = u.Chats
	default:
		return nil
	}
	for _, chat := range chats {
		if channel, ok := chat.(*tg.Channel); ok {
			return channel
		}
	}
	return nil
}

func ignoreNotModified(err error) error {
	if tgerr.Is(err, "CHAT_NOT_MODIFIED") {
		return nil
	}
	return err
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := tgerr.AsFloodWait(err); ok {
		return fmt.Errorf("%w: %s", ErrRateLimited, err)
	}
	if tgerr.Is(err, "CHANNEL_PRIVATE", "CHANNEL_INVALID", "PEER_ID_INVALID") {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, err)
}
