// Truth or Dare
//
// One device is passed around the room; everyone else can follow along on
// their own phone. Every game lives at its own URL and all connections to
// that URL see and drive the same session.
//
// Features:
// - WebSockets per game ID: /path/:gameid and /path/:gameid/ws
// - One goroutine per game applies intents in arrival order
// - Screens: home, setup, playing, settings
// - Optional pause between picking truth or dare and revealing the prompt
// - Settings for renaming, adding and removing players and clearing scores
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Areej-sudo/TruthDare/games/truthordare"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Screen is what every connected client should be showing.
type Screen string

const (
	ScreenHome     Screen = "home"
	ScreenSetup    Screen = "setup"
	ScreenPlaying  Screen = "playing"
	ScreenSettings Screen = "settings"
)

// Number of placeholder players a new game starts with, unless
// --max-players is lower.
const defaultRosterSize = 4

// Messages coming from clients
type ClientMessage struct {
	Type  string   `json:"type"`            // see handleIntent
	Mode  string   `json:"mode,omitempty"`  // choose
	Names []string `json:"names,omitempty"` // start
	Name  string   `json:"name,omitempty"`  // add_player
	Index *int     `json:"index,omitempty"` // remove_player / edit_begin
	Text  string   `json:"text,omitempty"`  // edit_draft / edit_commit
}

// StateMessage is broadcast after every accepted intent.
type StateMessage struct {
	Type       string            `json:"type"` // "state"
	Screen     Screen            `json:"screen"`
	Game       truthordare.State `json:"game"`
	Loading    string            `json:"loading,omitempty"` // set while a prompt is being drawn
	MinPlayers int               `json:"min_players"`
	MaxPlayers int               `json:"max_players"`
}

// SimpleMessage is for one-line notifications ("notice", "error").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type intent struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id  string
	cfg *Config

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	intents  chan intent
	reveals  chan uint64
	done     chan struct{}
	stopOnce sync.Once

	// mu guards clients and the timestamps; everything below is owned by run.
	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time

	session *truthordare.Session
	screen  Screen
	back    Screen // where closing settings returns to
	draws   uint64 // bumped on every Select so late reveals can be told apart
}

func defaultRoster(maxPlayers int) []string {
	n := defaultRosterSize
	if maxPlayers > 0 {
		n = min(n, maxPlayers)
	}
	return truthordare.Sanitize(make([]string, n))
}

func newHub(cfg *Config, gameID string, corpus truthordare.Corpus) (*Hub, error) {
	session, err := truthordare.New(corpus, defaultRoster(cfg.maxPlayers), truthordare.WithMaxPlayers(cfg.maxPlayers))
	if err != nil {
		return nil, fmt.Errorf("new game %s: %w", gameID, err)
	}

	now := time.Now()
	return &Hub{
		id:         gameID,
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		intents:    make(chan intent),
		reveals:    make(chan uint64),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
		session:    session,
		screen:     ScreenHome,
		back:       ScreenHome,
	}, nil
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return

		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			h.sendLocked(c, h.stateMessage())
			h.mu.Unlock()

			logf(h.cfg, "GAMES: Client %s connected to %s", c.playerID, h.id)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case in := <-h.intents:
			h.touch()
			h.handleIntent(in)

		case seq := <-h.reveals:
			h.handleReveal(seq)
		}
	}
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

// handleIntent applies one client command to the session. Intents that do
// not fit the current screen or round are dropped without a reply.
func (h *Hub) handleIntent(in intent) {
	s := h.session
	msg := in.msg

	switch msg.Type {
	case "play":
		if h.screen != ScreenHome {
			return
		}
		h.screen = ScreenSetup

	case "home":
		if h.screen == ScreenPlaying && s.Round() != truthordare.Idle {
			return
		}
		s.CancelEdit()
		h.screen = ScreenHome

	case "start":
		if h.screen != ScreenSetup {
			return
		}
		if err := s.Setup(msg.Names); err != nil {
			h.reject(in.client, "start", err)
			return
		}
		gamesStarted.Inc()
		h.screen = ScreenPlaying

		logf(h.cfg, "GAMES: Started %s with %d players", h.id, s.Len())

	case "choose":
		if h.screen != ScreenPlaying {
			return
		}
		mode, err := truthordare.ParseMode(msg.Mode)
		if err != nil {
			h.sendError(in.client, err.Error())
			return
		}
		h.choose(mode)

	case "complete", "skip":
		if h.screen != ScreenPlaying {
			return
		}
		_, name := s.Current()
		mode := s.Mode()

		outcome, text := "completed", name+" completed the challenge!"
		ok := false
		if msg.Type == "complete" {
			ok = s.CompleteChallenge()
		} else {
			outcome, text = "skipped", name+" skipped the challenge."
			ok = s.SkipChallenge()
		}
		if !ok {
			return
		}

		challengesFinished.WithLabelValues(string(mode), outcome).Inc()
		h.broadcast(SimpleMessage{Type: "notice", Message: text})

		logf(h.cfg, "GAMES: %q %s a %s in %s", name, outcome, mode, h.id)

	case "reset":
		if h.screen != ScreenPlaying {
			return
		}
		s.Reset()

	case "open_settings":
		if h.screen != ScreenHome && h.screen != ScreenPlaying {
			return
		}
		if s.Round() != truthordare.Idle {
			return
		}
		h.back = h.screen
		h.screen = ScreenSettings

	case "close_settings":
		if h.screen != ScreenSettings {
			return
		}
		s.CancelEdit()
		h.screen = h.back

	case "add_player", "remove_player", "reset_scores", "edit_begin", "edit_draft", "edit_commit", "edit_cancel":
		if h.screen != ScreenSettings {
			return
		}
		if !h.handleSettings(in) {
			return
		}

	default:
		return
	}

	h.broadcastState()
}

// handleSettings applies roster edits. It reports whether anything should
// be broadcast.
func (h *Hub) handleSettings(in intent) bool {
	s := h.session
	msg := in.msg

	switch msg.Type {
	case "add_player":
		if err := s.AddPlayer(msg.Name); err != nil {
			h.reject(in.client, msg.Type, err)
			return false
		}

	case "remove_player":
		index := s.Len() - 1
		if msg.Index != nil {
			index = *msg.Index
		}
		if err := s.RemovePlayer(index); err != nil {
			h.reject(in.client, msg.Type, err)
			return false
		}

	case "reset_scores":
		st := s.Snapshot()
		if err := s.UpdateRoster(st.Players, make([]int, len(st.Players))); err != nil {
			h.reject(in.client, msg.Type, err)
			return false
		}
		h.broadcast(SimpleMessage{Type: "notice", Message: "All scores have been reset to 0!"})

	case "edit_begin":
		if msg.Index == nil {
			return false
		}
		if err := s.BeginEdit(*msg.Index); err != nil {
			h.sendError(in.client, err.Error())
			return false
		}

	case "edit_draft":
		s.SetDraft(msg.Text)

	case "edit_commit":
		s.CommitEdit(msg.Text)

	case "edit_cancel":
		s.CancelEdit()
	}

	return true
}

// choose picks a mode for the current player. With a draw delay the prompt
// is revealed later through h.reveals.
func (h *Hub) choose(mode truthordare.Mode) {
	if h.cfg.drawDelay <= 0 {
		h.session.ChooseMode(mode)
		return
	}

	if !h.session.Select(mode) {
		return
	}

	h.draws++
	seq := h.draws
	time.AfterFunc(h.cfg.drawDelay, func() {
		select {
		case h.reveals <- seq:
		case <-h.done:
		}
	})
}

func (h *Hub) handleReveal(seq uint64) {
	if seq != h.draws {
		return
	}
	if h.session.Reveal() {
		h.broadcastState()
	}
}

func rejection(cfg *Config, err error) string {
	switch {
	case errors.Is(err, truthordare.ErrInvalidRosterSize):
		return fmt.Sprintf("You need at least %d players to play the game!", truthordare.MinPlayers)
	case errors.Is(err, truthordare.ErrRosterTooLarge):
		return fmt.Sprintf("You can have at most %d players.", cfg.maxPlayers)
	case errors.Is(err, truthordare.ErrPlayerIndex):
		return "That player is no longer in the game."
	}
	return err.Error()
}

func (h *Hub) reject(c *Client, command string, err error) {
	rosterRejected.WithLabelValues(command).Inc()
	h.sendError(c, rejection(h.cfg, err))
}

func (h *Hub) sendError(c *Client, text string) {
	if c == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	h.sendLocked(c, SimpleMessage{Type: "error", Message: text})
}

func loadingLabel(mode truthordare.Mode) string {
	if mode == truthordare.Truth {
		return "Picking a juicy truth..."
	}
	return "Finding a spicy dare..."
}

func (h *Hub) stateMessage() StateMessage {
	msg := StateMessage{
		Type:       "state",
		Screen:     h.screen,
		Game:       h.session.Snapshot(),
		MinPlayers: truthordare.MinPlayers,
		MaxPlayers: h.cfg.maxPlayers,
	}
	if msg.Game.Round == truthordare.Selecting {
		msg.Loading = loadingLabel(msg.Game.Mode)
	}
	return msg
}

func (h *Hub) broadcastState() {
	h.broadcast(h.stateMessage())
}

func (h *Hub) broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// sendLocked drops clients that cannot keep up. h.mu must be held.
func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll stops the hub and disconnects every client (used by reaper).
func (h *Hub) closeAll() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "truthdare_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	cfg    *Config
	corpus truthordare.Corpus

	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	quit        chan struct{}
	stopOnce    sync.Once
}

func newGameManager(cfg *Config, corpus truthordare.Corpus) *GameManager {
	gm := &GameManager{
		cfg:         cfg,
		corpus:      corpus,
		hubs:        make(map[string]*Hub),
		idleTimeout: cfg.sessionTimeout,
		quit:        make(chan struct{}),
	}
	if gm.idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(gameID string) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub, nil
	}

	hub, err := newHub(gm.cfg, gameID, gm.corpus)
	if err != nil {
		return nil, err
	}
	gm.hubs[gameID] = hub
	gamesCreated.Inc()
	gamesOpen.Inc()

	go hub.run()

	logf(gm.cfg, "GAMES: Opened game %s", gameID)

	return hub, nil
}

const (
	gameIDLength  = 8
	gameIDLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// newGameID returns a random ID that no open game is using.
func (gm *GameManager) newGameID() string {
	buf := make([]byte, gameIDLength)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand: " + err.Error())
		}
		for i, b := range buf {
			buf[i] = gameIDLetters[int(b)%len(gameIDLetters)]
		}
		id := string(buf)

		gm.mu.Lock()
		_, taken := gm.hubs[id]
		gm.mu.Unlock()

		if !taken {
			return id
		}
	}
}

// reap removes hubs that have been idle since before cutoff.
func (gm *GameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			gamesOpen.Dec()
			go hub.closeAll()

			logf(gm.cfg, "GAMES: Reaped idle game %s", id)
		}
	}
}

func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-gm.quit:
			return
		case now := <-ticker.C:
			gm.reap(now.Add(-gm.idleTimeout))
		}
	}
}

// stop ends every game and the reaper.
func (gm *GameManager) stop() {
	gm.stopOnce.Do(func() { close(gm.quit) })

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		gamesOpen.Dec()
		hub.closeAll()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		hub, err := gm.getHub(gameID)
		if err != nil {
			logf(cfg, "ERROR: Opening game %s failed: %v", gameID, err)
			http.Error(w, "unable to open game", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Upgrade for %s failed: %v", realIP(r), err)
			return
		}
		conn.SetReadLimit(maxMessageSize)

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

const maxMessageSize = 8 << 10

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.intents <- intent{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// gameURL is the absolute address of the game page that r was made under.
// A proxy's X-Forwarded-Proto wins over the configured scheme.
func gameURL(cfg *Config, r *http.Request) string {
	scheme := cfg.scheme()
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")
}

const qrSize = 320

// qrHandler serves a PNG of the game's link so others can join from the
// presenter's screen.
func qrHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("gameid") == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		png, err := qrcode.Encode(gameURL(cfg, r), qrcode.Medium, qrSize)
		if err != nil {
			errs <- err
			serveErrorPage(cfg, w, http.StatusInternalServerError, "Server Error", "Could not draw the QR code.")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

func getIndexHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile("assets/truthordare/index.html")
		if err != nil {
			errs <- err
			serveErrorPage(cfg, w, http.StatusInternalServerError, "Server Error", "An error has occurred. Please try again.")
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, err = w.Write(data)
		if err != nil {
			errs <- err
		}
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerTruthOrDareGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerTruthOrDareGame(cfg *Config, corpus truthordare.Corpus, path string, mux *httprouter.Router, errs chan<- error) *GameManager {
	gm := newGameManager(cfg, corpus)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg, errs))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg, errs))

	return gm
}
