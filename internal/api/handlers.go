package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eivu-go/internal/eivu"
)

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}

func folderFilter(c *gin.Context) eivu.FolderFilter {
	return eivu.FolderFilter{
		Clean:      queryBool(c, "clean"),
		PeepyOnly:  queryBool(c, "peepy"),
		HasContent: queryBool(c, "has_content"),
	}
}

// bindJSON decodes the request body into dst, reporting decode failures as
// invalid input.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("%w: %v", eivu.ErrInvalidInput, err)
	}
	return nil
}

// listAllFolders returns the folder tree of every bucket.
func (s *Server) listAllFolders(c *gin.Context) {
	ctx := c.Request.Context()
	buckets, err := s.svc.ListBuckets(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	filter := folderFilter(c)
	trees := make([]bucketTree, 0, len(buckets))
	for _, b := range buckets {
		nodes, err := s.svc.FolderListing(ctx, b.ID, filter)
		if err != nil {
			respondError(c, err)
			return
		}
		trees = append(trees, bucketTree{ID: b.ID, Name: b.Name, Folders: nodes})
	}
	respond(c, http.StatusOK, trees)
}

func (s *Server) listBuckets(c *gin.Context) {
	buckets, err := s.svc.ListBuckets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, gin.H{"id": b.ID, "name": b.Name, "has_region": b.RegionID.Valid})
	}
	respond(c, http.StatusOK, out)
}

func (s *Server) bucketFolders(c *gin.Context) {
	nodes, err := s.svc.FolderListing(c.Request.Context(), c.Param("bucket_id"), folderFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nodes)
}

func (s *Server) recountFolders(c *gin.Context) {
	n, err := s.svc.Recount(c.Request.Context(), c.Param("bucket_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"corrected": n})
}

func (s *Server) folderFiles(c *gin.Context) {
	files, err := s.svc.FolderFiles(c.Request.Context(), c.Param("folder_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, newFileViews(files))
}

func (s *Server) fileExists(c *gin.Context) {
	hash := c.Query("hash")
	if hash == "" {
		respondError(c, fmt.Errorf("%w: hash is required", eivu.ErrInvalidInput))
		return
	}
	var folderID *string
	if id, ok := c.GetQuery("folder_id"); ok {
		folderID = &id
	}

	exists, err := s.svc.Exists(c.Request.Context(), hash, c.Param("bucket_id"), folderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"exists": exists})
}

func (s *Server) reserveFile(c *gin.Context) {
	var req eivu.ReserveRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	req.BucketID = c.Param("bucket_id")

	file, err := s.svc.Reserve(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, newFileView(file))
}

func (s *Server) transferFile(c *gin.Context) {
	var attrs eivu.TransferAttributes
	if err := bindJSON(c, &attrs); err != nil {
		respondError(c, err)
		return
	}

	file, err := s.svc.Transfer(c.Request.Context(), c.Param("file_id"), attrs)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, newFileView(file))
}

func (s *Server) completeFile(c *gin.Context) {
	var params eivu.CompletionParams
	if err := bindJSON(c, &params); err != nil {
		respondError(c, err)
		return
	}

	file, err := s.svc.Complete(c.Request.Context(), c.Param("file_id"), params)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, newFileView(file))
}

// showFile returns a file with its public URL. A bucket without a region
// yields a file without URL rather than an error.
func (s *Server) showFile(c *gin.Context) {
	ctx := c.Request.Context()
	file, err := s.svc.FindFile(ctx, c.Param("file_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	view := newFileView(file)
	if url, err := s.svc.FileURL(ctx, file.ID); err == nil {
		view.URL = url
	}
	respond(c, http.StatusOK, view)
}

// deleteFile removes a file record. With purge set the remote object is
// deleted first, and a gateway failure keeps the record.
func (s *Server) deleteFile(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("file_id")

	if queryBool(c, "purge") {
		if err := s.svc.DeleteRemote(ctx, id); err != nil {
			respondError(c, err)
			return
		}
	}
	if err := s.svc.Remove(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}
