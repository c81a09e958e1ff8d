// Package interceptor has RTP interceptors for the peer connections.
package interceptor

import (
	"strings"

	. "github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/voicehub/roomcall/pkg/monitoring"
)

// Stats counts RTP packets and bytes of every stream by the media kind.
type Stats struct {
	NoOp
}

// StatsFactory makes a Stats interceptor for each peer connection.
type StatsFactory struct{}

func (StatsFactory) NewInterceptor(string) (Interceptor, error) { return &Stats{}, nil }

func kindOf(info *StreamInfo) string {
	kind, _, _ := strings.Cut(info.MimeType, "/")
	if kind == "" {
		return "unknown"
	}
	return strings.ToLower(kind)
}

// BindLocalStream counts outgoing packets.
func (i *Stats) BindLocalStream(info *StreamInfo, writer RTPWriter) RTPWriter {
	packets := monitoring.RtpPackets.WithLabelValues(kindOf(info), monitoring.DirOut)
	bytes := monitoring.RtpBytes.WithLabelValues(kindOf(info), monitoring.DirOut)
	return RTPWriterFunc(func(header *rtp.Header, payload []byte, attributes Attributes) (int, error) {
		n, err := writer.Write(header, payload, attributes)
		if err == nil {
			packets.Inc()
			bytes.Add(float64(n))
		}
		return n, err
	})
}

// BindRemoteStream counts incoming packets.
func (i *Stats) BindRemoteStream(info *StreamInfo, reader RTPReader) RTPReader {
	packets := monitoring.RtpPackets.WithLabelValues(kindOf(info), monitoring.DirIn)
	bytes := monitoring.RtpBytes.WithLabelValues(kindOf(info), monitoring.DirIn)
	return RTPReaderFunc(func(b []byte, a Attributes) (int, Attributes, error) {
		n, attr, err := reader.Read(b, a)
		if err == nil {
			packets.Inc()
			bytes.Add(float64(n))
		}
		return n, attr, err
	})
}
