// Package remotetest provides an in-memory remote.Client for tests.
package remotetest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/dmitrijs2005/migrainelog/internal/rpc"
)

// Client keeps entries and preferences in memory and mimics the server: ids
// and timestamps are assigned here, ordered listing fails with
// common.ErrIndexMissing while IndexMissing is set.
type Client struct {
	mu sync.Mutex

	entries map[string]rpc.Entry
	order   []string
	prefs   map[string]map[string]any
	seq     int
	now     time.Time

	IndexMissing bool
	// FailAdd, when set, is consulted before every insert; n counts calls
	// from 1.
	FailAdd func(n int, in models.EntryInput) error
	// Err forces the named method (rpc.Method*) to fail.
	Err map[string]error

	addCalls int
	Calls    []string
}

func New() *Client {
	return &Client{
		entries: map[string]rpc.Entry{},
		prefs:   map[string]map[string]any{},
		now:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Err:     map[string]error{},
	}
}

func (c *Client) enter(method string) error {
	c.Calls = append(c.Calls, method)
	return c.Err[method]
}

func (c *Client) tick() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *Client) InitUser(ctx context.Context, req rpc.InitUserRequest) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(rpc.MethodInitUser); err != nil {
		return false, err
	}
	if _, ok := c.prefs[req.UserID]; ok {
		return false, nil
	}
	c.prefs[req.UserID] = map[string]any{}
	return true, nil
}

func (c *Client) AddEntry(ctx context.Context, userID string, in models.EntryInput) (models.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(rpc.MethodAddEntry); err != nil {
		return "", err
	}
	c.addCalls++
	if c.FailAdd != nil {
		if err := c.FailAdd(c.addCalls, in); err != nil {
			return "", err
		}
	}

	c.seq++
	id := "r" + strconv.Itoa(c.seq)
	now := c.tick()
	e := models.Entry{
		ID:         models.ID(id),
		EntryInput: in,
		Duration:   models.DurationMinutes(in.StartDateTime, in.EndDateTime),
		UserID:     userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	c.entries[id] = rpc.EntryFromModel(e)
	c.order = append(c.order, id)
	return models.ID(id), nil
}

func (c *Client) UpdateEntry(ctx context.Context, id models.ID, patch models.EntryPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(rpc.MethodUpdateEntry); err != nil {
		return err
	}
	w, ok := c.entries[id.String()]
	if !ok {
		return fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
	}
	m := w.Model()
	m.EntryInput = patch.Apply(m.EntryInput)
	m.Duration = models.DurationMinutes(m.StartDateTime, m.EndDateTime)
	m.UpdatedAt = c.tick()
	c.entries[id.String()] = rpc.EntryFromModel(m)
	return nil
}

func (c *Client) DeleteEntry(ctx context.Context, id models.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(rpc.MethodDeleteEntry); err != nil {
		return err
	}
	delete(c.entries, id.String())
	return nil
}

func (c *Client) GetEntry(ctx context.Context, id models.ID) (rpc.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(rpc.MethodGetEntry); err != nil {
		return rpc.Entry{}, err
	}
	w, ok := c.entries[id.String()]
	if !ok {
		return rpc.Entry{}, fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
	}
	return w, nil
}

// userEntries returns the user's entries in insertion order.
func (c *Client) userEntries(userID string) []rpc.Entry {
	out := []rpc.Entry{}
	for _, id := range c.order {
		if w, ok := c.entries[id]; ok && w.UserID == userID {
			out = append(out, w)
		}
	}
	return out
}

func sortDesc(list []rpc.Entry) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartDateTime.After(list[j].StartDateTime.Time)
	})
}

func (c *Client) ListEntries(ctx context.Context, req rpc.ListEntriesRequest) ([]rpc.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(rpc.MethodListEntries); err != nil {
		return nil, err
	}
	if req.Ordered && c.IndexMissing {
		return nil, fmt.Errorf("ordered listing: %w", common.ErrIndexMissing)
	}
	list := c.userEntries(req.UserID)
	if req.Ordered {
		sortDesc(list)
	}
	if req.Limit > 0 && len(list) > req.Limit {
		list = list[:req.Limit]
	}
	return list, nil
}

func (c *Client) ListEntriesInRange(ctx context.Context, userID string, from, to time.Time) ([]rpc.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(rpc.MethodListEntriesInRange); err != nil {
		return nil, err
	}
	if c.IndexMissing {
		return nil, fmt.Errorf("range listing: %w", common.ErrIndexMissing)
	}
	out := []rpc.Entry{}
	for _, w := range c.userEntries(userID) {
		if !w.StartDateTime.Before(from) && !w.StartDateTime.After(to) {
			out = append(out, w)
		}
	}
	sortDesc(out)
	return out, nil
}

func (c *Client) GetPreferences(ctx context.Context, userID string) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(rpc.MethodGetPreferences); err != nil {
		return nil, err
	}
	p := c.prefs[userID]
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out, nil
}

func (c *Client) SetPreferences(ctx context.Context, userID string, prefs map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(rpc.MethodSetPreferences); err != nil {
		return err
	}
	cp := make(map[string]any, len(prefs))
	for k, v := range prefs {
		cp[k] = v
	}
	c.prefs[userID] = cp
	return nil
}

// Entries returns every stored entry of userID as the store would see it.
func (c *Client) Entries(userID string) []models.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Entry{}
	for _, w := range c.userEntries(userID) {
		out = append(out, w.Model())
	}
	return out
}
