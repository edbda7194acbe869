// Package mapclient talks to the map service, the directory tracking every
// room and its exit wiring. Every call returns a typed result instead of an
// error: transport failures, decode failures and unexpected statuses all
// collapse to Unavailable so the registrar can simply retry next tick.
package mapclient

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gameontext/room/internal/signed"
)

// Kind classifies the outcome of a map service call.
type Kind int

const (
	Found Kind = iota
	NotFound
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case Unavailable:
		return "unavailable"
	}
	return "unknown"
}

type ConnectionDetails struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// RoomInfo is the registration payload and the info block of a stored
// record. Doors are keyed by direction letter.
type RoomInfo struct {
	Name              string            `json:"name"`
	FullName          string            `json:"fullName"`
	Description       string            `json:"description"`
	Doors             map[string]string `json:"doors"`
	ConnectionDetails ConnectionDetails `json:"connectionDetails"`
}

// ExitRecord is one map-assigned exit. ConnectionDetails is nil when the
// far side has none recorded, e.g. the wiring back to first room.
type ExitRecord struct {
	Name              string             `json:"name"`
	FullName          string             `json:"fullName"`
	Door              string             `json:"door"`
	ID                string             `json:"_id"`
	ConnectionDetails *ConnectionDetails `json:"connectionDetails"`
}

// Record is the stored form of a room in the map.
type Record struct {
	ID    string                `json:"_id"`
	Info  RoomInfo              `json:"info"`
	Exits map[string]ExitRecord `json:"exits"`
}

// QueryResult is the outcome of an owner+name lookup. ID is set only when
// Kind is Found.
type QueryResult struct {
	Kind   Kind
	ID     string
	Status int
}

// RecordResult is the outcome of a call that yields a full record.
type RecordResult struct {
	Kind   Kind
	Record *Record
	Status int
}

type Client struct {
	http      *http.Client
	baseURL   string
	healthURL string
	signer    *signed.Signer
}

func New(serviceURL, healthURL, systemID, secret string, timeout time.Duration) *Client {
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   strings.TrimSuffix(serviceURL, "/"),
		healthURL: healthURL,
		signer:    signed.NewSigner(systemID, secret),
	}
}

// Healthy probes the map health endpoint. The probe is unsigned; anything
// but a 200 counts as unhealthy.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("map health probe failed: %v", err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// QueryByOwnerAndName looks a room up by its owning system and room id.
// Rooms are unique per owner+name, so a hit is at most one record; only its
// id is returned, the full record comes from FetchByID.
func (c *Client) QueryByOwnerAndName(ctx context.Context, owner, name string) QueryResult {
	target := c.baseURL + "?owner=" + url.QueryEscape(owner) + "&name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return QueryResult{Kind: Unavailable}
	}
	c.signer.SignRequest(req, nil)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("map query for %s failed: %v", name, err)
		return QueryResult{Kind: Unavailable}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return QueryResult{Kind: NotFound, Status: resp.StatusCode}
	case http.StatusOK:
		var hits []Record
		if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil || len(hits) == 0 {
			log.Printf("map query for %s returned an unusable body: %v", name, err)
			return QueryResult{Kind: Unavailable, Status: resp.StatusCode}
		}
		return QueryResult{Kind: Found, ID: hits[0].ID, Status: resp.StatusCode}
	default:
		// 404 and 503 both mean the map cannot answer right now; so does
		// anything else we did not expect.
		return QueryResult{Kind: Unavailable, Status: resp.StatusCode}
	}
}

// FetchByID retrieves the full stored record, including exit wiring.
func (c *Client) FetchByID(ctx context.Context, id string) RecordResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(id), nil)
	if err != nil {
		return RecordResult{Kind: Unavailable}
	}
	c.signer.SignRequest(req, nil)
	return c.recordCall(req, http.StatusOK)
}

// Create registers a new room and returns the stored record with its
// assigned exits.
func (c *Client) Create(ctx context.Context, info RoomInfo) RecordResult {
	return c.write(ctx, http.MethodPost, c.baseURL, info, http.StatusCreated)
}

// Update replaces the stored record for id with the room's full current
// state. Partial patches are not part of the map protocol.
func (c *Client) Update(ctx context.Context, id string, info RoomInfo) RecordResult {
	return c.write(ctx, http.MethodPut, c.baseURL+"/"+url.PathEscape(id), info, http.StatusOK)
}

func (c *Client) write(ctx context.Context, method, target string, info RoomInfo, wantStatus int) RecordResult {
	body, err := json.Marshal(info)
	if err != nil {
		log.Printf("map payload marshal failed for %s: %v", info.Name, err)
		return RecordResult{Kind: Unavailable}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return RecordResult{Kind: Unavailable}
	}
	req.Header.Set("Content-Type", "application/json")
	c.signer.SignRequest(req, body)
	return c.recordCall(req, wantStatus)
}

func (c *Client) recordCall(req *http.Request, wantStatus int) RecordResult {
	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("map %s %s failed: %v", req.Method, req.URL.Path, err)
		return RecordResult{Kind: Unavailable}
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		log.Printf("map %s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode)
		return RecordResult{Kind: Unavailable, Status: resp.StatusCode}
	}

	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		log.Printf("map %s %s returned an unusable body: %v", req.Method, req.URL.Path, err)
		return RecordResult{Kind: Unavailable, Status: resp.StatusCode}
	}
	return RecordResult{Kind: Found, Record: &rec, Status: resp.StatusCode}
}
