package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"
)

var (
	ErrTranscriptsDisabled   = errors.New("No captions available for this video. Captions may be disabled by the video owner.")
	ErrNoTranscriptFound     = errors.New("No transcript found for this video. This may happen if the video is not in the specified languages.")
	ErrTranscriptEmpty       = errors.New("Transcript is empty.")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
)

const (
	UnknownTitle   = "Unknown Title"
	UnknownChannel = "Unknown Channel"
)

var DefaultLanguages = []string{"en", "hi"}

// Client is the subset of *youtube.Client used by the fetcher.
type Client interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetTranscriptCtx(ctx context.Context, video *youtube.Video, lang string) (youtube.VideoTranscript, error)
}

type Metadata struct {
	Title       string `json:"title" yaml:"title"`
	ChannelName string `json:"channel_name" yaml:"channelName"`
	ChannelURL  string `json:"channel_url" yaml:"channelURL"`
}

type Fetcher interface {
	// Transcript returns the captions of the video flattened into one text.
	Transcript(ctx context.Context, videoID string) (string, error)

	// Metadata never fails; unknown fields fall back to placeholders.
	Metadata(ctx context.Context, videoID string) Metadata
}

func NewFetcher(client Client, languages ...string) Fetcher {
	if client == nil {
		client = &youtube.Client{}
	}

	if len(languages) == 0 {
		languages = DefaultLanguages
	}

	return &fetcher{
		client:    client,
		languages: languages,
		log: zap.L().With(
			zap.String("component", "youtube"),
		),
	}
}

type fetcher struct {
	client    Client
	languages []string
	log       *zap.Logger
}

func (f *fetcher) Transcript(ctx context.Context, videoID string) (string, error) {
	video, err := f.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTranscriptUnavailable, err.Error())
	}

	if len(video.CaptionTracks) == 0 {
		return "", ErrTranscriptsDisabled
	}

	lang, ok := f.selectLanguage(video.CaptionTracks)
	if !ok {
		return "", ErrNoTranscriptFound
	}

	segments, err := f.client.GetTranscriptCtx(ctx, video, lang)
	if err != nil {
		if errors.Is(err, youtube.ErrTranscriptDisabled) {
			return "", ErrTranscriptsDisabled
		}

		return "", fmt.Errorf("%w: %s", ErrTranscriptUnavailable, err.Error())
	}

	texts := make([]string, 0, len(segments))
	for _, segment := range segments {
		texts = append(texts, segment.Text)
	}

	transcript := strings.Join(texts, " ")
	if strings.TrimSpace(transcript) == "" {
		return "", ErrTranscriptEmpty
	}

	f.log.Debug("transcript fetched",
		zap.String("video_id", videoID),
		zap.String("lang", lang),
		zap.Int("segments", len(segments)),
	)

	return transcript, nil
}

// selectLanguage picks the first preferred language with a caption track.
// Regional variants such as en-US satisfy their base language.
func (f *fetcher) selectLanguage(tracks []youtube.CaptionTrack) (string, bool) {
	for _, lang := range f.languages {
		for _, track := range tracks {
			code := track.LanguageCode
			if code == lang || strings.HasPrefix(code, lang+"-") {
				return code, true
			}
		}
	}

	return "", false
}

func (f *fetcher) Metadata(ctx context.Context, videoID string) Metadata {
	metadata := Metadata{
		Title:       UnknownTitle,
		ChannelName: UnknownChannel,
	}

	video, err := f.client.GetVideoContext(ctx, videoID)
	if err != nil {
		f.log.Warn(err.Error(), zap.String("video_id", videoID))
		return metadata
	}

	if video.Title != "" {
		metadata.Title = video.Title
	}

	if video.Author != "" {
		metadata.ChannelName = video.Author
	}

	if video.ChannelID != "" {
		metadata.ChannelURL = "https://www.youtube.com/channel/" + video.ChannelID
	}

	return metadata
}
