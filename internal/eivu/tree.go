package eivu

import (
	"sort"

	"eivu-go/internal/model"
)

// FolderNode is one node of a nested folder listing.
type FolderNode struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Peepy           bool          `json:"peepy"`
	Nsfw            bool          `json:"nsfw"`
	FilesCount      int64         `json:"files_count"`
	SubfoldersCount int64         `json:"subfolders_count"`
	Children        []*FolderNode `json:"children"`
}

// FolderFilter restricts a listing. A folder that fails the filter is
// omitted together with everything below it.
type FolderFilter struct {
	Clean      bool // only folders not marked peepy
	PeepyOnly  bool // only folders marked peepy
	HasContent bool // only folders holding files or subfolders
}

func (f FolderFilter) keep(folder *model.Folder) bool {
	if f.Clean && folder.Peepy {
		return false
	}
	if f.PeepyOnly && !folder.Peepy {
		return false
	}
	if f.HasContent && !folder.HasContent() {
		return false
	}
	return true
}

// BuildFolderTree nests a flat folder list by parent. Siblings are sorted by
// name. Folders whose parent is not in the list are treated as roots.
func BuildFolderTree(folders []*model.Folder, filter FolderFilter) []*FolderNode {
	nodes := make(map[string]*FolderNode, len(folders))
	for _, f := range folders {
		if !filter.keep(f) {
			continue
		}
		nodes[f.ID] = &FolderNode{
			ID:              f.ID,
			Name:            f.Name,
			Peepy:           f.Peepy,
			Nsfw:            f.Nsfw,
			FilesCount:      f.FilesCount,
			SubfoldersCount: f.SubfoldersCount,
			Children:        []*FolderNode{},
		}
	}

	byID := make(map[string]*model.Folder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}

	roots := []*FolderNode{}
	for _, f := range folders {
		node, ok := nodes[f.ID]
		if !ok {
			continue
		}
		if !f.ParentID.Valid {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[f.ParentID.String]; ok {
			parent.Children = append(parent.Children, node)
			continue
		}
		// Parent exists but was filtered out: hide the subtree.
		if _, known := byID[f.ParentID.String]; known {
			continue
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*FolderNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
