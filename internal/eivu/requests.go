package eivu

import (
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"

	"eivu-go/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ReserveRequest asks for a new file record in a bucket.
type ReserveRequest struct {
	BucketID    string `json:"bucket_id" validate:"required"`
	ContentHash string `json:"content_hash" validate:"required,hexadecimal,excludesall=xX,max=128"` // hex digits only, no 0x prefix
	Name        string `json:"name" validate:"max=1024"`
	Peepy       bool   `json:"peepy"`
	Nsfw        bool   `json:"nsfw"`
}

// TransferAttributes are recorded once the bytes reached the remote store.
type TransferAttributes struct {
	Asset       string `json:"asset" validate:"max=1024"`
	ContentType string `json:"content_type" validate:"max=255"`
	Filesize    int64  `json:"filesize" validate:"gte=0"`
}

// FileAttributes are optional metadata applied at completion. Nil fields
// leave the record unchanged.
type FileAttributes struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,max=1024"`
	Description *string  `json:"description,omitempty"`
	Rating      *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Duration    *int64   `json:"duration,omitempty" validate:"omitempty,gte=0"`
	InfoURL     *string  `json:"info_url,omitempty" validate:"omitempty,url"`
	Year        *int64   `json:"year,omitempty" validate:"omitempty,gte=0"`
	ExtID       *string  `json:"ext_id,omitempty"`
	Peepy       *bool    `json:"peepy,omitempty"`
	Nsfw        *bool    `json:"nsfw,omitempty"`
}

func (a FileAttributes) apply(f *model.File) {
	if a.Name != nil {
		f.Name = *a.Name
	}
	if a.Description != nil {
		f.Description = *a.Description
	}
	if a.Rating != nil {
		f.Rating = sql.NullFloat64{Float64: *a.Rating, Valid: true}
	}
	if a.Duration != nil {
		f.Duration = *a.Duration
	}
	if a.InfoURL != nil {
		f.InfoURL = *a.InfoURL
	}
	if a.Year != nil {
		f.Year = sql.NullInt64{Int64: *a.Year, Valid: true}
	}
	if a.ExtID != nil {
		f.ExtID = *a.ExtID
	}
	if a.Peepy != nil {
		f.Peepy = *a.Peepy
	}
	if a.Nsfw != nil {
		f.Nsfw = *a.Nsfw
	}
}

// CompletionParams finalize a transferred file. RelativePath is the file's
// path on the source drive; its directories become the folder chain.
type CompletionParams struct {
	RelativePath string         `json:"relative_path" validate:"max=4096"`
	Folder       Classification `json:"folder"`
	Attributes   FileAttributes `json:"attributes"`
}

func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
