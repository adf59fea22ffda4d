package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/cuebridge/cuebridge/internal/models"
)

// DeviceConfig is one QLab host in the configured roster. OSC has no
// network discovery, so the devices a deployment can reach are declared
// up front.
type DeviceConfig struct {
	ID   string
	Name string
	Host string
	Port int
}

// deviceConn is the socket for one device plus the lock that serializes
// exchanges on it. UDP gives no request/response correlation beyond the
// reply address, so overlapping requests on one socket could steal each
// other's replies. The lock is per device: a hung device only stalls
// its own callers.
type deviceConn struct {
	mu   sync.Mutex
	conn *net.UDPConn
}

// QLabBackend speaks QLab's OSC dialect over UDP. QLab answers query
// requests on the sending socket with a /reply message whose single
// string argument is a JSON envelope {"status", "data"}.
type QLabBackend struct {
	devices []DeviceConfig
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex // guards conns map only, never held across I/O
	conns map[string]*deviceConn
}

// NewQLabBackend creates a backend for the configured device roster.
// Timeout bounds each request/reply exchange.
func NewQLabBackend(devices []DeviceConfig, timeout time.Duration, logger *slog.Logger) *QLabBackend {
	return &QLabBackend{
		devices: devices,
		timeout: timeout,
		logger:  logger,
		conns:   make(map[string]*deviceConn),
	}
}

// EnumerateDevices returns the configured roster. Liveness is not
// probed here; a dead device surfaces on first use.
func (b *QLabBackend) EnumerateDevices(ctx context.Context) ([]models.Device, error) {
	devices := make([]models.Device, 0, len(b.devices))
	for _, d := range b.devices {
		devices = append(devices, models.Device{UniqueID: d.ID, DisplayName: d.Name})
	}
	return devices, nil
}

// EnumerateWorkspaces asks a device for its open workspaces.
func (b *QLabBackend) EnumerateWorkspaces(ctx context.Context, deviceID string) ([]models.Workspace, error) {
	data, err := b.request(ctx, deviceID, "/workspaces")
	if err != nil {
		return nil, err
	}
	var workspaces []models.Workspace
	if err := json.Unmarshal(data, &workspaces); err != nil {
		return nil, fmt.Errorf("%w: workspaces payload: %v", models.ErrBackendUnavailable, err)
	}
	return workspaces, nil
}

var actionAddresses = map[models.Action]string{
	models.ActionGo:       "/go",
	models.ActionNext:     "/select/next",
	models.ActionPrevious: "/select/previous",
	models.ActionPanic:    "/panic",
	models.ActionStop:     "/stop",
	models.ActionPause:    "/pause",
	models.ActionResume:   "/resume",
}

// Invoke sends one playback command and waits for QLab's reply.
func (b *QLabBackend) Invoke(ctx context.Context, deviceID, workspaceID string, action models.Action) error {
	suffix, ok := actionAddresses[action]
	if !ok {
		return &models.UnknownActionError{Name: string(action)}
	}
	_, err := b.request(ctx, deviceID, "/workspace/"+workspaceID+suffix)
	return err
}

// QueryCueState reads the running and selected cues of a workspace.
// Either list may legitimately be empty (nothing playing, nothing
// selected); that is not an error.
func (b *QLabBackend) QueryCueState(ctx context.Context, deviceID, workspaceID string) (models.CueState, error) {
	var state models.CueState

	running, err := b.queryCueList(ctx, deviceID, "/workspace/"+workspaceID+"/runningCues")
	if err != nil {
		return models.CueState{}, err
	}
	if len(running) > 0 {
		state.ActiveCueNumber = running[0].Number
		state.ActiveCueName = running[0].Name
	}

	selected, err := b.queryCueList(ctx, deviceID, "/workspace/"+workspaceID+"/selectedCues")
	if err != nil {
		return models.CueState{}, err
	}
	if len(selected) > 0 {
		state.SelectedCueNumber = selected[0].Number
		state.SelectedCueName = selected[0].Name
	}
	return state, nil
}

// ListCues returns the full cue list of a workspace. QLab reports cue
// lists as a tree (groups contain children); the tree is flattened into
// display order because the remote renders a flat list.
func (b *QLabBackend) ListCues(ctx context.Context, deviceID, workspaceID string) ([]models.Cue, error) {
	data, err := b.request(ctx, deviceID, "/workspace/"+workspaceID+"/cueLists")
	if err != nil {
		return nil, err
	}
	var lists []cueEntry
	if err := json.Unmarshal(data, &lists); err != nil {
		return nil, fmt.Errorf("%w: cue list payload: %v", models.ErrBackendUnavailable, err)
	}
	var cues []models.Cue
	for _, list := range lists {
		cues = appendCues(cues, list.Cues)
	}
	return cues, nil
}

func appendCues(dst []models.Cue, entries []cueEntry) []models.Cue {
	for _, e := range entries {
		dst = append(dst, models.Cue{UniqueID: e.UniqueID, Number: e.Number, Name: e.Name})
		if len(e.Cues) > 0 {
			dst = appendCues(dst, e.Cues)
		}
	}
	return dst
}

// SelectCue moves the playhead to a cue by unique ID without firing it.
func (b *QLabBackend) SelectCue(ctx context.Context, deviceID, workspaceID, cueID string) error {
	_, err := b.request(ctx, deviceID, "/workspace/"+workspaceID+"/select_id/"+cueID)
	return err
}

// QueryAudioLevels reads the device's output levels. Unlike the query
// addresses, /audio/get answers with a /reply/audioLevels message
// carrying three raw float arguments instead of a JSON envelope.
func (b *QLabBackend) QueryAudioLevels(ctx context.Context, deviceID string) (models.AudioLevels, error) {
	reply, err := b.exchange(ctx, deviceID, oscMessage{Addr: "/audio/get"}, "/reply/audioLevels")
	if err != nil {
		return models.AudioLevels{}, err
	}
	if len(reply.Args) < 3 {
		return models.AudioLevels{}, fmt.Errorf("%w: audio reply carried %d arguments", models.ErrBackendUnavailable, len(reply.Args))
	}
	var levels models.AudioLevels
	for i, dst := range []*float64{&levels.Master, &levels.Left, &levels.Right} {
		f, ok := reply.Args[i].(float32)
		if !ok {
			return models.AudioLevels{}, fmt.Errorf("%w: audio reply argument %d is not a float", models.ErrBackendUnavailable, i)
		}
		*dst = float64(f)
	}
	return levels, nil
}

// SetAudioLevels applies output levels to a device. The set addresses
// do not reply; each message is fire-and-forget.
func (b *QLabBackend) SetAudioLevels(ctx context.Context, deviceID string, levels models.AudioLevels) error {
	sets := []struct {
		addr  string
		value float64
	}{
		{"/audio/master", levels.Master},
		{"/audio/left", levels.Left},
		{"/audio/right", levels.Right},
	}
	for _, s := range sets {
		if err := b.send(ctx, deviceID, oscMessage{Addr: s.addr, Args: []any{float32(s.value)}}); err != nil {
			return err
		}
	}
	return nil
}

type cueEntry struct {
	UniqueID string     `json:"uniqueID"`
	Number   string     `json:"number"`
	Name     string     `json:"name"`
	Cues     []cueEntry `json:"cues"`
}

func (b *QLabBackend) queryCueList(ctx context.Context, deviceID, addr string) ([]cueEntry, error) {
	data, err := b.request(ctx, deviceID, addr)
	if err != nil {
		return nil, err
	}
	var cues []cueEntry
	if err := json.Unmarshal(data, &cues); err != nil {
		return nil, fmt.Errorf("%w: cue payload: %v", models.ErrBackendUnavailable, err)
	}
	return cues, nil
}

// request performs one OSC request/reply exchange with a device and
// returns the envelope's data payload.
func (b *QLabBackend) request(ctx context.Context, deviceID, addr string, args ...any) (json.RawMessage, error) {
	reply, err := b.exchange(ctx, deviceID, oscMessage{Addr: addr, Args: args}, "/reply"+addr)
	if err != nil {
		return nil, err
	}
	payload, ok := reply.firstString()
	if !ok {
		return nil, fmt.Errorf("%w: reply to %s carried no payload", models.ErrBackendUnavailable, addr)
	}
	env, err := parseReplyEnvelope(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}
	if env.Status != "ok" {
		return nil, fmt.Errorf("%w: %s returned status %q", models.ErrBackendUnavailable, addr, env.Status)
	}
	return env.Data, nil
}

// exchange sends msg and waits for the message addressed want. Messages
// arriving on the socket that are not the reply to this request (QLab
// pushes workspace updates on the same connection) are discarded.
func (b *QLabBackend) exchange(ctx context.Context, deviceID string, msg oscMessage, want string) (oscMessage, error) {
	dc, err := b.deviceConn(deviceID)
	if err != nil {
		return oscMessage{}, err
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()

	deadline := time.Now().Add(b.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	dc.conn.SetDeadline(deadline)

	packet, err := msg.encode()
	if err != nil {
		return oscMessage{}, err
	}
	if _, err := dc.conn.Write(packet); err != nil {
		b.dropConn(deviceID, dc)
		return oscMessage{}, fmt.Errorf("%w: send %s: %v", models.ErrBackendUnavailable, msg.Addr, err)
	}

	buf := make([]byte, 65536)
	for {
		n, err := dc.conn.Read(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return oscMessage{}, fmt.Errorf("%w: no reply to %s within %s", models.ErrBackendUnavailable, msg.Addr, b.timeout)
			}
			b.dropConn(deviceID, dc)
			return oscMessage{}, fmt.Errorf("%w: read: %v", models.ErrBackendUnavailable, err)
		}
		reply, err := decodeOSCMessage(buf[:n])
		if err != nil {
			b.logger.Debug("discarding undecodable datagram", "device", deviceID, "error", err)
			continue
		}
		if reply.Addr != want {
			b.logger.Debug("discarding unsolicited message", "device", deviceID, "address", reply.Addr)
			continue
		}
		return reply, nil
	}
}

// send writes one message without waiting for a reply.
func (b *QLabBackend) send(ctx context.Context, deviceID string, msg oscMessage) error {
	dc, err := b.deviceConn(deviceID)
	if err != nil {
		return err
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()

	deadline := time.Now().Add(b.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	dc.conn.SetWriteDeadline(deadline)

	packet, err := msg.encode()
	if err != nil {
		return err
	}
	if _, err := dc.conn.Write(packet); err != nil {
		b.dropConn(deviceID, dc)
		return fmt.Errorf("%w: send %s: %v", models.ErrBackendUnavailable, msg.Addr, err)
	}
	return nil
}

// deviceConn returns the cached connection for a device, dialing on
// first use.
func (b *QLabBackend) deviceConn(deviceID string) (*deviceConn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dc, ok := b.conns[deviceID]; ok {
		return dc, nil
	}
	var cfg *DeviceConfig
	for i := range b.devices {
		if b.devices[i].ID == deviceID {
			cfg = &b.devices[i]
			break
		}
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: device %q", models.ErrNotFound, deviceID)
	}

	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", models.ErrBackendUnavailable, cfg.Host, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", models.ErrBackendUnavailable, raddr, err)
	}

	// QLab only answers non-query messages (go, panic, ...) when
	// /alwaysReply is set on the connection.
	packet, _ := oscMessage{Addr: "/alwaysReply", Args: []any{int32(1)}}.encode()
	conn.SetWriteDeadline(time.Now().Add(b.timeout))
	if _, err := conn.Write(packet); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: alwaysReply: %v", models.ErrBackendUnavailable, err)
	}

	b.logger.Info("connected to qlab device", "device", deviceID, "addr", raddr.String())
	dc := &deviceConn{conn: conn}
	b.conns[deviceID] = dc
	return dc, nil
}

// dropConn discards a connection after a transport error so the next
// request redials. The dc argument guards against discarding a fresh
// connection another goroutine already established.
func (b *QLabBackend) dropConn(deviceID string, dc *deviceConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.conns[deviceID]; ok && cur == dc {
		cur.conn.Close()
		delete(b.conns, deviceID)
	}
}

// Close releases all device connections.
func (b *QLabBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, dc := range b.conns {
		dc.conn.Close()
		delete(b.conns, id)
	}
	return nil
}
