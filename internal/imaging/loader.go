package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of decoded images kept by NewImageCache
// when a non-positive size is requested.
const DefaultCacheSize = 32

// ImageCache keeps recently decoded images keyed by file path.
//
// The cache is bounded: once it holds its configured number of images the
// least recently used one is dropped. ImageCache is safe for concurrent use.
//
// # Example Usage
//
//	cache := imaging.NewImageCache(16)
//	img, err := cache.Load("/path/to/roof.jpg")
//	if err != nil {
//	    return err
//	}
type ImageCache struct {
	images *lru.Cache[string, image.Image]
}

// NewImageCache creates an empty cache holding at most size images.
func NewImageCache(size int) *ImageCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	images, err := lru.New[string, image.Image](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &ImageCache{images: images}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// JPEG EXIF orientation is applied at decode time so pixel coordinates match
// what a viewer shows. Supported formats are PNG, JPEG and GIF.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	if img, ok := c.images.Get(path); ok {
		return img, nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, fmt.Errorf("failed to open image: %w", statErr)
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.images.Add(path, img)
	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	return c.images.Len()
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.images.Purge()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.images.Remove(path)
}

// Decode decodes an in-memory encoded image, applying EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the detected image format: "png", "jpeg", "gif", or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// MimeType matches Format, or "application/octet-stream" when unknown.
	MimeType string `json:"mime_type"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through the cache and returns its metadata.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format, mimeType := FormatFromPath(path)
	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		MimeType:      mimeType,
		FileSizeBytes: stat.Size(),
	}, nil
}

// FormatFromPath maps a file extension to a format name and MIME type.
func FormatFromPath(path string) (format, mimeType string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png", "image/png"
	case ".jpg", ".jpeg":
		return "jpeg", "image/jpeg"
	case ".gif":
		return "gif", "image/gif"
	}
	return "unknown", "application/octet-stream"
}
