package model

import (
	"database/sql"
	"time"
)

// FileState is the ingestion lifecycle state of a File.
type FileState string

const (
	StateEmpty       FileState = "empty"
	StateReserved    FileState = "reserved"
	StateTransferred FileState = "transferred"
	StateCompleted   FileState = "completed"
)

// Region is a remote storage region. Name is the signing region
// (e.g. "us-east-2"), Endpoint the host buckets live under.
type Region struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Endpoint  string    `db:"endpoint"`
	CreatedAt time.Time `db:"created_at"`
}

// Bucket is a logical storage namespace bound to a remote region.
type Bucket struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	RegionID  sql.NullString `db:"region_id"`
	CreatedAt time.Time      `db:"created_at"`
}

// Folder is a metadata-only node mirroring a directory on the source drive.
type Folder struct {
	ID              string         `db:"id"`
	BucketID        string         `db:"bucket_id"`
	ParentID        sql.NullString `db:"parent_id"`
	Ancestry        string         `db:"ancestry"` // ancestor ids joined by "/", "" at root
	Name            string         `db:"name"`
	Peepy           bool           `db:"peepy"`
	Nsfw            bool           `db:"nsfw"`
	FilesCount      int64          `db:"files_count"`
	SubfoldersCount int64          `db:"subfolders_count"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// ChildAncestry returns the ancestry string that direct children of f carry.
func (f *Folder) ChildAncestry() string {
	if f.Ancestry == "" {
		return f.ID
	}
	return f.Ancestry + "/" + f.ID
}

// HasContent reports whether the folder holds files or subfolders.
func (f *Folder) HasContent() bool {
	return f.FilesCount > 0 || f.SubfoldersCount > 0
}

// File is one ingested content object.
type File struct {
	ID          string          `db:"id"`
	BucketID    string          `db:"bucket_id"`
	FolderID    sql.NullString  `db:"folder_id"`
	ContentHash string          `db:"content_hash"`
	State       FileState       `db:"state"`
	Name        string          `db:"name"`
	Asset       string          `db:"asset"`
	ContentType string          `db:"content_type"`
	RemoteKey   string          `db:"remote_key"` // object key, fixed once the bytes are transferred
	Filesize    int64           `db:"filesize"`
	Description string          `db:"description"`
	Rating      sql.NullFloat64 `db:"rating"`
	Duration    int64           `db:"duration"`
	InfoURL     string          `db:"info_url"`
	Year        sql.NullInt64   `db:"year"`
	ExtID       string          `db:"ext_id"`
	Peepy       bool            `db:"peepy"`
	Nsfw        bool            `db:"nsfw"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// DisplayName returns the file's name, falling back to its stored asset name.
func (f *File) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Asset
}

// StorageName is the name the object is stored under: the asset name when
// one was recorded at transfer, otherwise the display name.
func (f *File) StorageName() string {
	if f.Asset != "" {
		return f.Asset
	}
	return f.Name
}
