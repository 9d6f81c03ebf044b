package entity

// AvatarStatus tracks a transient avatar asset through the pipeline.
type AvatarStatus string

const (
	AvatarIdle      AvatarStatus = "idle"
	AvatarAcquiring AvatarStatus = "acquiring"
	AvatarUploading AvatarStatus = "uploading"
	AvatarPublished AvatarStatus = "published"
	AvatarFailed    AvatarStatus = "failed"
)

// ImageSourceKind selects where an avatar image comes from.
type ImageSourceKind string

const (
	SourceCamera  ImageSourceKind = "camera"
	SourceLibrary ImageSourceKind = "library"
)

// Valid reports whether k names a known source.
func (k ImageSourceKind) Valid() bool {
	return k == SourceCamera || k == SourceLibrary
}

// AvatarAsset is never persisted as an entity; only RemoteURL ends up on the Profile.
type AvatarAsset struct {
	LocalURI    string
	RemoteURL   string
	ContentType string
	Status      AvatarStatus
}
