package votegen

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"image"
	"image/png"
	"log"
	"math/big"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/wallarena/pkg/logger"
)

// Constants for synthetic image generation.
const (
	imageSize        = 96
	patternDivisor   = 4
	duplicateEveryN  = 10
	randomByteBound  = 256
	gradientStepBase = 2
)

// Pattern type cases.
const (
	caseHorizontalRamp = 0
	caseVerticalRamp   = 1
	caseDiagonalRamp   = 2
	caseCheckerboard   = 3
)

// generateImages renders the synthetic wallpapers to upload. Every
// duplicateEveryN-th image repeats its predecessor pixel for pixel so
// the duplicate detector has something to find.
func generateImages(ctx context.Context, config *Config) ([][]byte, error) {
	logger.Get().Info(ctx, "generating synthetic wallpapers", logger.Int("count", config.NumWallpapers))

	images := make([][]byte, config.NumWallpapers)
	for i := 0; i < config.NumWallpapers; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during image generation: %w", ctx.Err())
		default:
		}

		if i > 0 && i%duplicateEveryN == 0 {
			images[i] = images[i-1]
			continue
		}

		data, err := renderImage(i)
		if err != nil {
			return nil, fmt.Errorf("failed to render image %d: %w", i, err)
		}
		images[i] = data
	}

	logger.Get().Info(ctx, "generated synthetic wallpapers", logger.Int("count", len(images)))
	return images, nil
}

// renderImage produces a PNG whose dHash varies with the index and a
// random seed, so most uploads land far apart in fingerprint space.
func renderImage(index int) ([]byte, error) {
	pattern, _ := rand.Int(rand.Reader, big.NewInt(patternDivisor))
	seed, _ := rand.Int(rand.Reader, big.NewInt(randomByteBound))
	offset := uint8(seed.Int64())
	step := gradientStepBase + index%5

	img := image.NewGray(image.Rect(0, 0, imageSize, imageSize))
	for y := 0; y < imageSize; y++ {
		for x := 0; x < imageSize; x++ {
			var v int
			switch pattern.Int64() {
			case caseHorizontalRamp:
				v = x * step
			case caseVerticalRamp:
				v = y * step
			case caseDiagonalRamp:
				v = (x + y) * step
			case caseCheckerboard:
				if (x/8+y/8)%2 == 0 {
					v = 32
				} else {
					v = 224
				}
			}
			img.Pix[y*img.Stride+x] = offset + uint8(v)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// uploadWallpapers uploads the rendered images concurrently and returns
// the created records.
func uploadWallpapers(ctx context.Context, config *Config, images [][]byte, stats *Stats) ([]Wallpaper, error) {
	log.Printf("🖼️  Uploading %d wallpapers with %d workers...", len(images), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/wallpapers"

	wallpapers := make([]Wallpaper, len(images))
	var (
		uploaded int64
		failed   int64
	)

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					title := "wallpaper_" + strconv.Itoa(index)
					fileName := title + ".png"

					w, err := uploadSingleWallpaper(client, url, title, fileName, images[index])
					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to upload %s: %v", title, err)
						}
						continue
					}
					wallpapers[index] = w
					atomic.AddInt64(&uploaded, 1)
				}
			}
		}(i)
	}

	go func() {
		defer close(indexChan)
		for i := range images {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	// Filter out failed uploads
	valid := make([]Wallpaper, 0, len(wallpapers))
	for _, w := range wallpapers {
		if w.ID != "" {
			valid = append(valid, w)
		}
	}

	stats.WallpapersUploaded = len(valid)
	stats.UploadsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Wallpaper upload completed:
   Uploaded: %d
   Failed: %d
`, stats.WallpapersUploaded, stats.UploadsFailed)

	if len(valid) == 0 {
		return nil, fmt.Errorf("no wallpapers uploaded")
	}
	return valid, nil
}

// uploadSingleWallpaper posts one image and parses the created record.
func uploadSingleWallpaper(client *HTTPClient, url, title, fileName string, data []byte) (Wallpaper, error) {
	resp, err := client.PostImage(url, title, fileName, data)
	if err != nil {
		return Wallpaper{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Wallpaper{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusCreated {
		return Wallpaper{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var w Wallpaper
	if err := unmarshalJSON(body, &w); err != nil {
		return Wallpaper{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return w, nil
}

// elapsedForVote picks a plausible decision time in milliseconds. Most
// votes are deliberate; a few are suspiciously fast or very slow so the
// damping paths get traffic too.
func elapsedForVote() *int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(20))
	var ms int64
	switch {
	case n.Int64() == 0:
		ms = 300 // snap vote
	case n.Int64() == 1:
		ms = 15000 // distracted voter
	default:
		r, _ := rand.Int(rand.Reader, big.NewInt(8000))
		ms = 1000 + r.Int64()
	}
	return &ms
}

// timestampSuffix tags vote ids so reruns against the same service do
// not collide.
func timestampSuffix() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}
