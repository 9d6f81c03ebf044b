package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/profile-sync/internal/domain/apperror"
	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

type AvatarState string

const (
	StateIdle                 AvatarState = "idle"
	StateRequestingPermission AvatarState = "requesting_permission"
	StateAcquiringImage       AvatarState = "acquiring_image"
	StateUploading            AvatarState = "uploading"
	StatePublished            AvatarState = "published"
	StateDenied               AvatarState = "denied"
	StateCancelled            AvatarState = "cancelled"
)

// Terminal states end an attempt; the next request starts from Idle again.
func (s AvatarState) Terminal() bool {
	return s == StatePublished || s == StateDenied || s == StateCancelled
}

func (s AvatarState) inFlight() bool {
	return s == StateRequestingPermission || s == StateAcquiringImage || s == StateUploading
}

type AvatarEvent string

const (
	EventRequest  AvatarEvent = "request"
	EventGranted  AvatarEvent = "granted"
	EventDenied   AvatarEvent = "denied"
	EventAcquired AvatarEvent = "acquired"
	EventAborted  AvatarEvent = "aborted"
	EventAccepted AvatarEvent = "accepted"
	EventRejected AvatarEvent = "rejected"
	// EventFailed covers broker, source and decode failures before upload.
	EventFailed AvatarEvent = "failed"
	EventReset  AvatarEvent = "reset"
)

var avatarTransitions = map[AvatarState]map[AvatarEvent]AvatarState{
	StateIdle: {
		EventRequest: StateRequestingPermission,
	},
	StateRequestingPermission: {
		EventGranted: StateAcquiringImage,
		EventDenied:  StateDenied,
		EventFailed:  StateIdle,
	},
	StateAcquiringImage: {
		EventAcquired: StateUploading,
		EventAborted:  StateCancelled,
		EventFailed:   StateIdle,
	},
	StateUploading: {
		EventAccepted: StatePublished,
		EventRejected: StateIdle,
	},
	StatePublished: {EventReset: StateIdle},
	StateDenied:    {EventReset: StateIdle},
	StateCancelled: {EventReset: StateIdle},
}

var (
	ErrIllegalTransition = errors.New("illegal avatar state transition")
	ErrAvatarBusy        = errors.New("avatar upload already in progress")
)

// AvatarTransition is delivered to observers after every state change.
type AvatarTransition struct {
	From   AvatarState
	To     AvatarState
	Event  AvatarEvent
	UserID string
	Source entity.ImageSourceKind
	Asset  entity.AvatarAsset
	Err    error
	At     time.Time
}

type AvatarRequest struct {
	UserID string
	Source entity.ImageSourceKind
	// CurrentURL is the avatar the user has now, used to spot orphaned objects.
	CurrentURL string
}

type AvatarResult struct {
	URL         string
	Path        string
	ContentType string
	Asset       entity.AvatarAsset
}

// AvatarPipeline drives permission, acquisition, upload and publication of a
// user's avatar as an explicit state machine. One attempt runs at a time.
type AvatarPipeline struct {
	Permissions repository.PermissionBroker
	Images      repository.ImageSource
	Blobs       repository.BlobStore
	Logger      *logrus.Logger
	Now         func() time.Time

	mu        sync.Mutex
	state     AvatarState
	asset     entity.AvatarAsset
	observers []func(AvatarTransition)
}

func NewAvatarPipeline(perms repository.PermissionBroker, images repository.ImageSource, blobs repository.BlobStore, logger *logrus.Logger) *AvatarPipeline {
	return &AvatarPipeline{
		Permissions: perms,
		Images:      images,
		Blobs:       blobs,
		Logger:      logger,
		Now:         time.Now,
		state:       StateIdle,
		asset:       entity.AvatarAsset{Status: entity.AvatarIdle},
	}
}

// Observe registers fn for every subsequent transition. Observers run on the
// goroutine that drives the pipeline.
func (p *AvatarPipeline) Observe(fn func(AvatarTransition)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

func (p *AvatarPipeline) State() AvatarState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *AvatarPipeline) Asset() entity.AvatarAsset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asset
}

// Request runs one full attempt and returns the canonical public URL on success.
// Denial and cancellation end the attempt before any upload is issued.
func (p *AvatarPipeline) Request(ctx context.Context, req AvatarRequest) (*AvatarResult, error) {
	const op = "request avatar"
	if req.UserID == "" {
		return nil, apperror.Precondition(op, errors.New("no active session"))
	}
	if !req.Source.Valid() {
		return nil, apperror.Precondition(op, errors.New("unknown image source "+string(req.Source)))
	}
	if err := p.begin(req); err != nil {
		return nil, err
	}

	granted, err := p.requestPermission(ctx, req.Source)
	if err != nil {
		return nil, p.fail(req, EventFailed, apperror.Store(op, err))
	}
	if !granted {
		_ = p.fire(req, EventDenied, nil)
		avatarOutcomesTotal.WithLabelValues(string(req.Source), string(StateDenied)).Inc()
		return nil, apperror.New(apperror.KindPermissionDenied, op, nil)
	}
	if err := p.fire(req, EventGranted, nil); err != nil {
		return nil, err
	}

	p.setAssetStatus(entity.AvatarAcquiring)
	picked, err := p.acquire(ctx, req.Source)
	if errors.Is(err, repository.ErrPickerCancelled) || (err == nil && picked == nil) {
		p.setAssetStatus(entity.AvatarIdle)
		_ = p.fire(req, EventAborted, nil)
		avatarOutcomesTotal.WithLabelValues(string(req.Source), string(StateCancelled)).Inc()
		return nil, apperror.New(apperror.KindUserCancelled, op, nil)
	}
	if err != nil {
		return nil, p.fail(req, EventFailed, apperror.Store(op, err))
	}

	body, format, err := squareCrop(picked.Data)
	if err != nil {
		return nil, p.fail(req, EventFailed, apperror.New(apperror.KindInvalidImage, op, err))
	}
	ext := avatarExtFor(picked.URI, format)
	objectPath := AvatarPath(req.UserID, ext)
	contentType := AvatarContentType(ext)

	p.mu.Lock()
	p.asset = entity.AvatarAsset{LocalURI: picked.URI, ContentType: contentType, Status: entity.AvatarUploading}
	p.mu.Unlock()
	if err := p.fire(req, EventAcquired, nil); err != nil {
		return nil, err
	}

	started := time.Now()
	err = p.Blobs.Upload(ctx, objectPath, body, repository.UploadOptions{ContentType: contentType, Overwrite: true})
	avatarUploadDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, p.fail(req, EventRejected, apperror.Store(op, err))
	}

	url := p.Blobs.PublicURL(objectPath)
	p.mu.Lock()
	p.asset.RemoteURL = url
	p.asset.Status = entity.AvatarPublished
	asset := p.asset
	p.mu.Unlock()
	if err := p.fire(req, EventAccepted, nil); err != nil {
		return nil, err
	}
	avatarOutcomesTotal.WithLabelValues(string(req.Source), string(StatePublished)).Inc()
	p.warnIfOrphaned(req, ext)

	return &AvatarResult{URL: url, Path: objectPath, ContentType: contentType, Asset: asset}, nil
}

func (p *AvatarPipeline) begin(req AvatarRequest) error {
	p.mu.Lock()
	if p.state.inFlight() {
		p.mu.Unlock()
		return apperror.Precondition("request avatar", ErrAvatarBusy)
	}
	var fired []AvatarTransition
	if p.state.Terminal() {
		t, err := p.applyLocked(req, EventReset, nil)
		if err != nil {
			p.mu.Unlock()
			return err
		}
		fired = append(fired, t)
	}
	p.asset = entity.AvatarAsset{Status: entity.AvatarIdle}
	t, err := p.applyLocked(req, EventRequest, nil)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	fired = append(fired, t)
	observers := append([]func(AvatarTransition){}, p.observers...)
	p.mu.Unlock()

	notify(observers, fired...)
	return nil
}

func (p *AvatarPipeline) requestPermission(ctx context.Context, src entity.ImageSourceKind) (bool, error) {
	if src == entity.SourceCamera {
		return p.Permissions.RequestCameraPermission(ctx)
	}
	return p.Permissions.RequestLibraryPermission(ctx)
}

func (p *AvatarPipeline) acquire(ctx context.Context, src entity.ImageSourceKind) (*repository.PickedImage, error) {
	if src == entity.SourceCamera {
		return p.Images.CaptureFromCamera(ctx)
	}
	return p.Images.PickFromLibrary(ctx)
}

// fail moves back to Idle, marks the asset failed and returns cause.
func (p *AvatarPipeline) fail(req AvatarRequest, ev AvatarEvent, cause error) error {
	p.setAssetStatus(entity.AvatarFailed)
	if err := p.fire(req, ev, cause); err != nil {
		return err
	}
	avatarOutcomesTotal.WithLabelValues(string(req.Source), "failed").Inc()
	if p.Logger != nil {
		p.Logger.WithError(cause).WithFields(logrus.Fields{"user_id": req.UserID, "source": req.Source}).Warn("avatar attempt failed")
	}
	return cause
}

func (p *AvatarPipeline) setAssetStatus(s entity.AvatarStatus) {
	p.mu.Lock()
	p.asset.Status = s
	p.mu.Unlock()
}

// fire applies ev to the current state and notifies observers.
func (p *AvatarPipeline) fire(req AvatarRequest, ev AvatarEvent, cause error) error {
	p.mu.Lock()
	t, err := p.applyLocked(req, ev, cause)
	observers := append([]func(AvatarTransition){}, p.observers...)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	notify(observers, t)
	return nil
}

// applyLocked moves the state along the transition table. Events the table
// does not list for the current state are rejected and change nothing.
func (p *AvatarPipeline) applyLocked(req AvatarRequest, ev AvatarEvent, cause error) (AvatarTransition, error) {
	from := p.state
	to, ok := avatarTransitions[from][ev]
	if !ok {
		if p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{"state": from, "event": ev}).Error("illegal avatar transition")
		}
		return AvatarTransition{}, ErrIllegalTransition
	}
	p.state = to
	return AvatarTransition{
		From:   from,
		To:     to,
		Event:  ev,
		UserID: req.UserID,
		Source: req.Source,
		Asset:  p.asset,
		Err:    cause,
		At:     p.now(),
	}, nil
}

func notify(observers []func(AvatarTransition), ts ...AvatarTransition) {
	for _, t := range ts {
		for _, fn := range observers {
			fn(t)
		}
	}
}

func (p *AvatarPipeline) warnIfOrphaned(req AvatarRequest, ext string) {
	if req.CurrentURL == "" || p.Logger == nil {
		return
	}
	prev := AvatarExt(req.CurrentURL)
	if prev != ext {
		p.Logger.WithFields(logrus.Fields{
			"user_id":  req.UserID,
			"orphaned": AvatarPath(req.UserID, prev),
		}).Warn("avatar extension changed, previous object left in store")
	}
}

func (p *AvatarPipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
