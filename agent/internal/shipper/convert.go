package shipper

import (
	"github.com/heartrelay/heartrelay/agent/internal/compute"
	"github.com/heartrelay/heartrelay/pkg/relayrpc"
)

// toRequest converts a filtered reading into the ingress request. The
// filter already bounds BPM to the int32 range.
func toRequest(r *compute.Result) *relayrpc.SubmitRequest {
	return &relayrpc.SubmitRequest{HeartRate: int32(r.BPM)}
}
