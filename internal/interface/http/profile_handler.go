package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/profile-sync/internal/application"
	"github.com/oksasatya/profile-sync/internal/domain/apperror"
	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/internal/domain/repository"
	"github.com/oksasatya/profile-sync/internal/infrastructure/redisstore"
	"github.com/oksasatya/profile-sync/internal/infrastructure/search"
	"github.com/oksasatya/profile-sync/internal/interface/middleware"
	"github.com/oksasatya/profile-sync/pkg/helpers"
	"github.com/oksasatya/profile-sync/pkg/response"
	"github.com/oksasatya/profile-sync/pkg/validation"
)

const (
	avatarField    = "avatar"
	searchCacheTTL = 30 * time.Second
)

type ProfileHandler struct {
	Store   application.ProfileStorage
	Blobs   repository.BlobStore
	Consent *redisstore.ConsentStore
	Index   *search.ProfileIndex
	Redis   *redis.Client
	Logger  *logrus.Logger

	// PermissionsFor returns the broker consulted for a user's avatar attempt.
	PermissionsFor func(userID string) repository.PermissionBroker
	MaxAvatarBytes int64
	Now            func() time.Time
}

func NewProfileHandler(store application.ProfileStorage, blobs repository.BlobStore, consent *redisstore.ConsentStore, index *search.ProfileIndex, rdb *redis.Client, logger *logrus.Logger, maxAvatarBytes int64) *ProfileHandler {
	h := &ProfileHandler{
		Store:          store,
		Blobs:          blobs,
		Consent:        consent,
		Index:          index,
		Redis:          rdb,
		Logger:         logger,
		MaxAvatarBytes: maxAvatarBytes,
		Now:            time.Now,
	}
	h.PermissionsFor = func(userID string) repository.PermissionBroker {
		return redisstore.ConsentBroker{Store: h.Consent, UserID: userID}
	}
	return h
}

type profileView struct {
	*entity.Profile
	DisplayName      string `json:"display_name"`
	Initials         string `json:"initials"`
	DisplayAvatarURL string `json:"display_avatar_url,omitempty"`
}

type updateProfileRequest struct {
	FullName        *string `json:"full_name" binding:"omitempty,fullname"`
	Username        *string `json:"username" binding:"omitempty,handle"`
	InstagramHandle *string `json:"instagram_handle" binding:"omitempty,handle"`
}

type avatarForm struct {
	Source string `form:"source" binding:"required,imgsource"`
}

type consentRequest struct {
	Camera  *bool `json:"camera"`
	Library *bool `json:"library"`
}

func (h *ProfileHandler) editor(avatars application.AvatarRequester) *application.ProfileEditor {
	e := application.NewProfileEditor(middleware.ContextSessions{}, h.Store, avatars, h.Logger)
	e.Now = h.now
	return e
}

func (h *ProfileHandler) view(e *application.ProfileEditor) profileView {
	return profileView{
		Profile:          e.Profile(),
		DisplayName:      e.DisplayName(),
		Initials:         e.Initials(),
		DisplayAvatarURL: e.DisplayAvatarURL(h.now()),
	}
}

// GetProfile returns the caller's profile, or a stub when none is stored yet.
// A store failure still answers with the stub and flags it in meta.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	e := h.editor(nil)
	p, err := e.Load(c.Request.Context())
	if p == nil {
		response.Error[any](c, statusFor(err), "failed to load profile", nil)
		return
	}
	var meta any
	if err != nil {
		meta = gin.H{"degraded": true, "kind": apperror.KindOf(err).String()}
	}
	response.Success(c, http.StatusOK, h.view(e), "profile", meta)
}

// UpdateProfile applies the supplied fields as one explicit save. Text fields
// left out of the body are written back as loaded; avatar_url is never written
// here.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	ctx := c.Request.Context()
	e := h.editor(nil)
	if err := e.BeginEdit(ctx); err != nil {
		response.Error[any](c, statusFor(err), application.SaveNotice(err).Message, nil)
		return
	}
	if req.FullName != nil {
		e.SetFullName(strings.TrimSpace(*req.FullName))
	}
	if req.Username != nil {
		e.SetUsername(*req.Username)
	}
	if req.InstagramHandle != nil {
		e.SetInstagramHandle(*req.InstagramHandle)
	}
	if err := e.Save(ctx); err != nil {
		response.Error[any](c, statusFor(err), application.SaveNotice(err).Message, gin.H{"kind": apperror.KindOf(err).String()})
		return
	}
	response.Success(c, http.StatusOK, h.view(e), application.SaveNotice(nil).Message, nil)
}

// UploadAvatar runs one avatar attempt for the uploaded image and waits for the
// avatar auto-save to land before answering.
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	var form avatarForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if fh, err := c.FormFile(avatarField); err == nil && h.MaxAvatarBytes > 0 && fh.Size > h.MaxAvatarBytes {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "avatar too large", gin.H{"max_bytes": h.MaxAvatarBytes})
		return
	}
	ctx := c.Request.Context()
	sess, ok := middleware.ContextSessions{}.Current(ctx)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
		return
	}

	pipeline := application.NewAvatarPipeline(
		h.PermissionsFor(sess.UserID),
		formImage{c: c, field: avatarField, maxBytes: h.MaxAvatarBytes},
		h.Blobs,
		h.Logger,
	)
	var notice *application.Notice
	pipeline.Observe(func(t application.AvatarTransition) {
		if n, ok := application.NoticeFor(t); ok {
			notice = &n
		}
	})

	e := h.editor(pipeline)
	if _, err := e.Load(ctx); err != nil && h.Logger != nil {
		h.Logger.WithError(err).WithField("user_id", sess.UserID).Warn("avatar change continuing with stub profile")
	}
	change, err := e.ChangeAvatar(ctx, entity.ImageSourceKind(form.Source))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNoContent {
			c.Status(status)
			return
		}
		msg := "failed to change avatar"
		if notice != nil {
			msg = notice.Message
		}
		response.Error[any](c, status, msg, gin.H{"kind": apperror.KindOf(err).String(), "notice": notice})
		return
	}
	if err := change.AutoSave.Wait(ctx); err != nil {
		response.Error[any](c, statusFor(err), "Failed to update profile. Please try again.", gin.H{"kind": apperror.KindOf(err).String(), "avatar_url": change.Result.URL})
		return
	}

	msg := ""
	if notice != nil {
		msg = notice.Message
	}
	response.Success(c, http.StatusOK, gin.H{
		"avatar_url":         change.Result.URL,
		"display_avatar_url": e.DisplayAvatarURL(h.now()),
		"content_type":       change.Result.ContentType,
		"notice":             notice,
	}, msg, nil)
}

func (h *ProfileHandler) GetConsent(c *gin.Context) {
	if h.Consent == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "consent store unavailable", nil)
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	consent, err := h.Consent.Get(c.Request.Context(), uid)
	if err != nil {
		response.Error[any](c, http.StatusServiceUnavailable, "failed to read consent", nil)
		return
	}
	response.Success(c, http.StatusOK, consent, "consent", nil)
}

// UpdateConsent records camera and library grants used by later avatar attempts.
func (h *ProfileHandler) UpdateConsent(c *gin.Context) {
	var req consentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if h.Consent == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "consent store unavailable", nil)
		return
	}
	ctx := c.Request.Context()
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Consent.Set(ctx, uid, req.Camera, req.Library); err != nil {
		response.Error[any](c, http.StatusServiceUnavailable, "failed to store consent", nil)
		return
	}
	consent, err := h.Consent.Get(ctx, uid)
	if err != nil {
		response.Error[any](c, http.StatusServiceUnavailable, "failed to read consent", nil)
		return
	}
	response.Success(c, http.StatusOK, consent, "consent updated", nil)
}

// RevokeConsent clears both grants; later avatar attempts are denied until
// consent is given again.
func (h *ProfileHandler) RevokeConsent(c *gin.Context) {
	if h.Consent == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "consent store unavailable", nil)
		return
	}
	if err := h.Consent.Clear(c.Request.Context(), c.GetString(middleware.CtxUserIDKey)); err != nil {
		response.Error[any](c, http.StatusServiceUnavailable, "failed to revoke consent", nil)
		return
	}
	response.Success(c, http.StatusOK, redisstore.Consent{}, "consent revoked", nil)
}

// Search looks profiles up in Elasticsearch. Results are cached briefly in Redis.
func (h *ProfileHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "missing query", map[string]string{"q": "is required"})
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	ctx := c.Request.Context()

	key := fmt.Sprintf("profiles:search:%d:%s", size, strings.ToLower(q))
	hits, cached, err := helpers.RedisRemember(ctx, h.Redis, key, searchCacheTTL, func(ctx context.Context) ([]search.ProfileHit, error) {
		return h.Index.Search(ctx, q, size)
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("profile search failed")
		}
		response.Error[any](c, http.StatusServiceUnavailable, "search unavailable", nil)
		return
	}
	var meta any
	if cached {
		meta = gin.H{"cached": true}
	}
	response.Success(c, http.StatusOK, hits, "search results", meta)
}

func (h *ProfileHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
