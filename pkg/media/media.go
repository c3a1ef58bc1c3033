// Package media acquires audio for transcription: YouTube sources via
// yt-dlp, local files via ffmpeg, duration probing via ffprobe.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var youtubeURLPattern = regexp.MustCompile(
	`^(https?://)?(www\.)?(youtube\.com/(watch\?v=|shorts/|embed/|live/)|youtu\.be/)[\w\-]{11}`,
)

// ValidateURL reports whether url looks like a YouTube video URL.
func ValidateURL(url string) bool {
	return youtubeURLPattern.MatchString(strings.TrimSpace(url))
}

// Limits bounds what the acquisition step accepts.
type Limits struct {
	MaxWindowSeconds  int
	MaxFileSizeBytes  int64
	AllowedExtensions []string
}

// ValidateWindow checks a selection window against the limits.
func (l Limits) ValidateWindow(startSeconds, endSeconds int) error {
	if endSeconds <= startSeconds {
		return fmt.Errorf("end must be greater than start")
	}
	if l.MaxWindowSeconds > 0 && endSeconds-startSeconds > l.MaxWindowSeconds {
		return fmt.Errorf("selection cannot exceed %d minutes", l.MaxWindowSeconds/60)
	}
	return nil
}

// ValidateFile checks a local media file's extension and size.
func (l Limits) ValidateFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	allowed := false
	for _, e := range l.AllowedExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("unsupported file type %s (allowed: %s)", ext, strings.Join(l.AllowedExtensions, ", "))
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat media file: %w", err)
	}
	if l.MaxFileSizeBytes > 0 && info.Size() > l.MaxFileSizeBytes {
		return fmt.Errorf("file exceeds %d MB", l.MaxFileSizeBytes/(1024*1024))
	}
	return nil
}

// Info is the probe result for a video source.
type Info struct {
	Title           string
	DurationSeconds int
	ThumbnailURL    string
}

const (
	probeTimeout   = 30 * time.Second
	extractTimeout = 15 * time.Minute
)

// Extractor shells out to yt-dlp, ffmpeg, and ffprobe.
type Extractor struct {
	CookiesFile string
	TmpDir      string
	Log         zerolog.Logger
}

// NewExtractor creates an extractor writing temp audio under tmpDir (the
// OS temp dir when empty).
func NewExtractor(cookiesFile, tmpDir string, log zerolog.Logger) *Extractor {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &Extractor{CookiesFile: cookiesFile, TmpDir: tmpDir, Log: log}
}

func (e *Extractor) cookiesArgs() []string {
	if e.CookiesFile == "" {
		return nil
	}
	if _, err := os.Stat(e.CookiesFile); err != nil {
		return nil
	}
	return []string{"--cookies", e.CookiesFile}
}

// VideoInfo fetches title, duration, and thumbnail for a YouTube URL.
func (e *Extractor) VideoInfo(ctx context.Context, url string) (*Info, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{"--dump-json", "--no-playlist", "--skip-download"}
	args = append(args, e.cookiesArgs()...)
	args = append(args, url)

	start := time.Now()
	out, err := runCommand(ctx, "yt-dlp", args...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	var data struct {
		Title     string  `json:"title"`
		Duration  float64 `json:"duration"`
		Thumbnail string  `json:"thumbnail"`
	}
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}

	e.Log.Info().Str("title", data.Title).Int("duration_seconds", int(data.Duration)).
		Dur("elapsed", time.Since(start)).Msg("video info fetched")

	return &Info{
		Title:           data.Title,
		DurationSeconds: int(data.Duration),
		ThumbnailURL:    data.Thumbnail,
	}, nil
}

// ExtractAudio pulls the selected window of a YouTube source as m4a.
// yt-dlp resolves the audio stream URL, then ffmpeg seeks into the stream
// with a range request and copies it without re-encoding. The caller owns
// the returned file.
func (e *Extractor) ExtractAudio(ctx context.Context, url string, startSeconds, endSeconds int) (string, error) {
	urlCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{"--no-playlist", "-f", "bestaudio[ext=m4a]/bestaudio[ext=webm]/bestaudio", "--get-url"}
	args = append(args, e.cookiesArgs()...)
	args = append(args, url)

	out, err := runCommand(urlCtx, "yt-dlp", args...)
	if err != nil {
		return "", fmt.Errorf("yt-dlp: %w", err)
	}
	streamURL := strings.TrimSpace(string(out))
	if streamURL == "" {
		return "", fmt.Errorf("yt-dlp returned empty stream URL")
	}

	outPath := filepath.Join(e.TmpDir, uuid.NewString()+".m4a")
	return e.clip(ctx, streamURL, outPath, startSeconds, endSeconds, true)
}

// ClipAudio cuts the selected window out of a local media file as m4a.
func (e *Extractor) ClipAudio(ctx context.Context, path string, startSeconds, endSeconds int) (string, error) {
	outPath := filepath.Join(e.TmpDir, uuid.NewString()+".m4a")
	return e.clip(ctx, path, outPath, startSeconds, endSeconds, false)
}

func (e *Extractor) clip(ctx context.Context, input, outPath string, startSeconds, endSeconds int, copyCodec bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	// -ss before -i so ffmpeg seeks with a range request instead of
	// reading from the start.
	args := []string{
		"-ss", strconv.Itoa(startSeconds),
		"-to", strconv.Itoa(endSeconds),
		"-i", input,
	}
	if copyCodec {
		args = append(args, "-c", "copy")
	} else {
		args = append(args, "-vn", "-c:a", "aac")
	}
	args = append(args, "-y", outPath)

	start := time.Now()
	if _, err := runCommand(ctx, "ffmpeg", args...); err != nil {
		return "", fmt.Errorf("ffmpeg: %w", err)
	}
	e.Log.Info().Int("start", startSeconds).Int("end", endSeconds).
		Dur("elapsed", time.Since(start)).Msg("audio extracted")
	return outPath, nil
}

// ProbeDuration returns a local media file's duration in seconds.
func (e *Extractor) ProbeDuration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := runCommand(ctx, "ffprobe", "-v", "quiet", "-print_format", "json", "-show_format", path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	var data struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &data); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	duration, err := strconv.ParseFloat(data.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	return duration, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if line := lastLine(stderr.String()); line != "" {
			return nil, fmt.Errorf("%s", line)
		}
		return nil, err
	}
	return out, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
