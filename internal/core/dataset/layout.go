package dataset

import "path/filepath"

// Layout maps one scene workspace onto disk. The directory names are the
// contract with the trainer: it reads frames from images/ and poses from
// sparse/0, while input/ keeps the untouched extraction output.
//
//	<root>/
//	├── input.mp4      source video
//	├── input/         extracted frames
//	├── images/        working copy consumed by colmap and the trainer
//	├── sparse/0/      cameras.bin, images.bin, points3D.bin
//	├── database.db    colmap feature database
//	└── output/        trained model artifacts
type Layout struct {
	Root string
}

func (l Layout) VideoPath() string    { return filepath.Join(l.Root, "input.mp4") }
func (l Layout) InputDir() string     { return filepath.Join(l.Root, "input") }
func (l Layout) ImagesDir() string    { return filepath.Join(l.Root, "images") }
func (l Layout) SparseDir() string    { return filepath.Join(l.Root, "sparse") }
func (l Layout) DatabasePath() string { return filepath.Join(l.Root, "database.db") }
func (l Layout) OutputDir() string    { return filepath.Join(l.Root, "output") }
