package streamcapture

import (
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// FFmpeg options for RTSP streams, tuned for low latency
var liveFFmpegOptions = map[string]string{
	"rtsp_transport":      "tcp",
	"buffer_size":         "2097152",
	"max_delay":           "500000",
	"stimeout":            "5000000",
	"rw_timeout":          "5000000",
	"flags":               "low_delay",
	"fflags":              "nobuffer+flush_packets",
	"analyzeduration":     "500000",
	"probesize":           "2000000",
	"err_detect":          "careful",
	"allowed_media_types": "video",
	"reconnect":           "1",
	"reconnect_streamed":  "1",
	"reconnect_delay_max": "2",
}

// More conservative options used after a reconnect
var recoveryFFmpegOptions = map[string]string{
	"rtsp_transport":      "tcp",
	"buffer_size":         "5000000",
	"probesize":           "5000000",
	"stimeout":            "5000000",
	"fflags":              "nobuffer",
	"flags":               "low_delay",
	"max_delay":           "3000000",
	"analyzeduration":     "500000",
	"err_detect":          "careful",
	"reconnect":           "1",
	"reconnect_streamed":  "1",
	"reconnect_delay_max": "1",
}

// ffmpegOptionString renders options in the key;value|key;value form read
// by the OpenCV FFmpeg backend
func ffmpegOptionString(options map[string]string) string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+";"+options[k])
	}
	return strings.Join(parts, "|")
}

func configureFFmpegOptions(options map[string]string) {
	opts := ffmpegOptionString(options)
	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", opts)
	log.Debug().Str("ffmpeg_options", opts).Msg("FFmpeg options configured for OpenCV")
}
