package splithttp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tanq16/splitdl/internal/utils"
)

// Probe issues a single HEAD request and reports the resource size and
// whether byte ranges may be requested.
func Probe(ctx context.Context, client utils.HTTPDoer, link string) (utils.ResourceInfo, error) {
	result, err := fetchProbe(ctx, client, link)
	if err != nil {
		return utils.ResourceInfo{}, err
	}
	return interpretProbe(link, result)
}

func fetchProbe(ctx context.Context, client utils.HTTPDoer, link string) (utils.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return utils.ProbeResult{}, utils.NewError(utils.InvalidArgument, "probe", fmt.Errorf("error creating request: %w", err))
	}
	resp, err := client.Do(req)
	if err != nil {
		return utils.ProbeResult{}, utils.NewError(utils.ConnectionError, "probe", err)
	}
	defer resp.Body.Close()

	result := utils.ProbeResult{
		StatusCode: resp.StatusCode,
		FileName:   utils.FileNameFromDisposition(resp.Header.Get("Content-Disposition")),
	}
	if values, ok := resp.Header[http.CanonicalHeaderKey("Content-Length")]; ok && len(values) > 0 {
		if size, err := strconv.ParseInt(strings.TrimSpace(values[0]), 10, 64); err == nil && size >= 0 {
			result.Size = &size
		}
	}
	if values, ok := resp.Header[http.CanonicalHeaderKey("Accept-Ranges")]; ok && len(values) > 0 {
		acceptRanges := strings.TrimSpace(values[0])
		result.AcceptRanges = &acceptRanges
	}
	return result, nil
}

func interpretProbe(link string, result utils.ProbeResult) (utils.ResourceInfo, error) {
	if result.StatusCode >= 400 {
		return utils.ResourceInfo{}, utils.NewError(utils.InvalidResource, "probe", fmt.Errorf("invalid/inaccessible URL %s: server returned %d", link, result.StatusCode))
	}
	if result.Size == nil {
		return utils.ResourceInfo{}, utils.NewError(utils.InvalidResource, "probe", fmt.Errorf("invalid/inaccessible URL %s: no usable Content-Length", link))
	}
	return utils.ResourceInfo{
		Size:           *result.Size,
		SupportsRanges: result.AcceptRanges != nil && !strings.EqualFold(*result.AcceptRanges, "none"),
		FileName:       result.FileName,
	}, nil
}
