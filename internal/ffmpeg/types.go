package ffmpeg

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	Path       string
	Duration   float64 // seconds
	Width      int
	Height     int
	FPS        float64
	Frames     int64 // declared frame count, 0 when the container omits it
	VideoCodec string
}
