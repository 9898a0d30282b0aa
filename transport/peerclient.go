package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/Aukciszek/backend/protoerr"
	"github.com/Aukciszek/backend/state"
)

// HTTPPeerClient implements engine.PeerClient over plain HTTP requests to
// the other nodes' peer-facing endpoints, mirroring the aiohttp-based
// dispatch the orchestrator's Python predecessor used.
type HTTPPeerClient struct {
	Parties []string // base URL per party, index = id-1
	SelfID  int
	Client  *http.Client
}

// NewHTTPPeerClient returns a peer client with a bounded per-call
// timeout; Round Q/R/U dispatch and reconstruction fetches each carry
// their own caller-supplied deadline via ctx regardless.
func NewHTTPPeerClient(parties []string, selfID int) *HTTPPeerClient {
	return &HTTPPeerClient{
		Parties: parties,
		SelfID:  selfID,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func kindPath(kind state.PeerShareKind) string {
	switch kind {
	case state.KindQ:
		return "receive-q"
	case state.KindR:
		return "receive-r"
	default:
		return "receive-u"
	}
}

// SendShare POSTs one redistribution point to peerIndex's receive-* endpoint.
func (c *HTTPPeerClient) SendShare(ctx context.Context, peerIndex int, kind state.PeerShareKind, senderID int, value *big.Int) error {
	if peerIndex < 0 || peerIndex >= len(c.Parties) {
		return fmt.Errorf("%w: peer index %d out of range", protoerr.ErrBadRequest, peerIndex)
	}

	body, err := json.Marshal(peerShareRequest{SenderID: senderID, Value: hexEncode(value)})
	if err != nil {
		return fmt.Errorf("%w: marshaling peer share: %v", protoerr.ErrInternal, err)
	}

	url := fmt.Sprintf("%s/api/%s", c.Parties[peerIndex], kindPath(kind))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", protoerr.ErrPeerFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", protoerr.ErrPeerFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: peer returned status %d", protoerr.ErrPeerFailure, resp.StatusCode)
	}
	return nil
}

// FetchShare GETs a named share from peerIndex's return-share-to-reconstruct
// endpoint.
func (c *HTTPPeerClient) FetchShare(ctx context.Context, peerIndex int, name string) (int, *big.Int, error) {
	if peerIndex < 0 || peerIndex >= len(c.Parties) {
		return 0, nil, fmt.Errorf("%w: peer index %d out of range", protoerr.ErrBadRequest, peerIndex)
	}

	url := fmt.Sprintf("%s/api/return-share-to-reconstruct/%s", c.Parties[peerIndex], name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", protoerr.ErrPeerFailure, err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", protoerr.ErrPeerFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, nil, fmt.Errorf("%w: peer returned status %d", protoerr.ErrPeerFailure, resp.StatusCode)
	}

	var out returnShareResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, nil, fmt.Errorf("%w: decoding response: %v", protoerr.ErrPeerFailure, err)
	}
	v, err := parseHex(out.Value)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: malformed value: %v", protoerr.ErrPeerFailure, err)
	}
	return out.ID, v, nil
}
