package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"walgit/core"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Record a new commit from the working tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		if message == "" {
			return core.FormatError("commit message is required (-m)", nil)
		}

		repo, err := ensureRepo()
		if err != nil {
			return err
		}

		root := repo.Repository.LocalRoot
		signer, err := loadSigner()
		if err != nil {
			return err
		}

		dek, err := core.NewDEK()
		if err != nil {
			return err
		}

		tree, manifestEntries, err := buildWorkingTree(repo, root, dek)
		if err != nil {
			return err
		}

		parent, err := repo.Refs.ResolveHead()
		if err != nil {
			if ce, ok := core.AsCoreError(err); !ok || ce.Kind != core.KindNotFound {
				return err
			}
			parent = core.ZeroHash
		}
		var parents []core.Hash
		if !parent.IsZero() {
			parents = []core.Hash{parent}
		}

		commit := core.Commit{
			Message:   message,
			Author:    signer.Address(),
			Timestamp: commitTimestamp(),
			RootTree:  tree.Hash,
			Parents:   parents,
		}
		commitHash := core.HashCommit(core.CommitFields{
			Tree:      commit.RootTree,
			Parents:   commit.Parents,
			Author:    commit.Author.String(),
			Committer: commit.Author.String(),
			Message:   commit.Message,
		})

		var parentCID *string
		if !parent.IsZero() {
			s := parent.String()
			parentCID = &s
		}
		manifest := core.Manifest{
			Timestamp:       commit.Timestamp,
			Author:          signer.Address().String(),
			Message:         message,
			ParentCommitCID: parentCID,
			Tree:            manifestEntries,
		}
		manifestCID, err := core.UploadManifest(cmdContext(), repo.Objects.Transport, repo.ChunkMap, manifest, dek)
		if err != nil {
			return err
		}

		keyring := core.DeriveKeyring(signer)
		shares, err := core.WrapDEK(dek, keyring.Recipients, keyring.Threshold, commitHash[:])
		if err != nil {
			return err
		}
		wrappedDEKCID, err := core.UploadWrappedDEK(cmdContext(), repo.Objects.Transport, repo.ChunkMap, keyring.Threshold, shares)
		if err != nil {
			return err
		}

		commit.ManifestCID = manifestCID
		commit.WrappedDEKCID = wrappedDEKCID

		h, err := repo.PutCommit(commit)
		if err != nil {
			return err
		}

		branchRef := "refs/heads/" + currentBranchName(repo)
		if err := repo.Refs.CompareAndSwap(branchRef, parent, h); err != nil {
			return err
		}

		fmt.Printf("[%s %s] %s\n", currentBranchName(repo), h.Short(), message)
		return nil
	},
}

// workingDirNode is one directory level while buildWorkingTree assembles
// the nested tree hierarchy spec.md §3 requires (entry names never
// contain path separators; subdirectories are nested Tree objects).
type workingDirNode struct {
	files map[string]core.TreeEntry
	dirs  map[string]*workingDirNode
}

func newWorkingDirNode() *workingDirNode {
	return &workingDirNode{files: make(map[string]core.TreeEntry), dirs: make(map[string]*workingDirNode)}
}

// buildWorkingTree walks root (excluding .walgit), encrypts and stores
// every file as a blob under dek, and builds a hierarchy of nested Tree
// objects mirroring the working directory's layout (spec.md §3/§4.8/§4.9).
// It also returns the manifest entries describing every file, for the
// commit's Manifest.
func buildWorkingTree(repo *core.Repo, root string, dek []byte) (core.Tree, map[string]core.ManifestEntry, error) {
	rootNode := newWorkingDirNode()
	manifestEntries := make(map[string]core.ManifestEntry)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == ".walgit" || strings.HasPrefix(rel, ".walgit"+string(filepath.Separator)) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		contentType := detectContentType(content)
		blob, err := repo.Objects.PutBlob(cmdContext(), content, contentType, dek)
		if err != nil {
			return err
		}
		mode := core.ModeFile
		if info.Mode()&0o111 != 0 {
			mode = core.ModeExec
		}

		segs := strings.Split(filepath.ToSlash(rel), "/")
		node := rootNode
		for _, d := range segs[:len(segs)-1] {
			child, ok := node.dirs[d]
			if !ok {
				child = newWorkingDirNode()
				node.dirs[d] = child
			}
			node = child
		}
		name := segs[len(segs)-1]
		node.files[name] = core.TreeEntry{Name: name, Kind: core.EntryBlob, ID: blob.Hash, Mode: mode}

		manifestEntries[filepath.ToSlash(rel)] = core.ManifestEntry{
			BlobCID:   blob.Hash.String(),
			Size:      blob.Size,
			SHA256:    core.SHA256Hex(content),
			Encrypted: true,
			Timestamp: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return core.Tree{}, nil, err
	}

	tree, err := putWorkingDirTree(repo, rootNode)
	if err != nil {
		return core.Tree{}, nil, err
	}
	return tree, manifestEntries, nil
}

// putWorkingDirTree recursively stores node's subdirectories bottom-up,
// then stores node itself, returning the resulting Tree.
func putWorkingDirTree(repo *core.Repo, node *workingDirNode) (core.Tree, error) {
	var entries []core.TreeEntry
	for _, f := range node.files {
		entries = append(entries, f)
	}

	dirNames := make([]string, 0, len(node.dirs))
	for name := range node.dirs {
		dirNames = append(dirNames, name)
	}
	sort.Strings(dirNames)
	for _, name := range dirNames {
		sub, err := putWorkingDirTree(repo, node.dirs[name])
		if err != nil {
			return core.Tree{}, err
		}
		entries = append(entries, core.TreeEntry{Name: name, Kind: core.EntryTree, ID: sub.Hash, Mode: core.ModeTree})
	}

	return repo.Objects.PutTree(entries)
}

func init() {
	commitCmd.Flags().StringP("message", "m", "", "commit message")
	rootCmd.AddCommand(commitCmd)
}
