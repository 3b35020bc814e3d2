package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Parow01/Parowbot/internal/metrics"
	"github.com/Parow01/Parowbot/internal/trade"
)

const defaultStreamURL = "wss://stream.binance.com:9443/stream"

// Stream pushes live Binance trades onto a channel as canonical trade
// records. It is an optional acquisition path next to REST polling;
// trades still flow through the same detector, whose dedup cache keeps
// the two paths from double-alerting.
type Stream struct {
	baseURL string
	symbols []string
	log     zerolog.Logger
}

type streamEnvelope struct {
	Stream string        `json:"stream"`
	Data   streamPayload `json:"data"`
}

type streamPayload struct {
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// NewStream builds a combined-stream subscription for the symbols.
func NewStream(baseURL string, symbols []string, log zerolog.Logger) *Stream {
	if baseURL == "" {
		baseURL = defaultStreamURL
	}
	return &Stream{
		baseURL: baseURL,
		symbols: symbols,
		log:     log.With().Str("source", "binance-ws").Logger(),
	}
}

// Run consumes the stream until the context is canceled, reconnecting
// with growing backoff on disconnects.
func (s *Stream) Run(ctx context.Context, out chan<- trade.Trade) error {
	if len(s.symbols) == 0 {
		return fmt.Errorf("stream requires at least one symbol")
	}

	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}
	url := fmt.Sprintf("%s?streams=%s", s.baseURL, strings.Join(streams, "/"))

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx, url, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("trade stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (s *Stream) consume(ctx context.Context, url string, out chan<- trade.Trade) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Strs("symbols", s.symbols).Msg("connected trade stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		tr, err := s.parseMessage(message)
		if err != nil {
			s.log.Warn().Err(err).Msg("skipping bad stream message")
			continue
		}

		select {
		case out <- *tr:
			metrics.TradesFetched.WithLabelValues("binance-ws", tr.Symbol).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Stream) parseMessage(message []byte) (*trade.Trade, error) {
	var env streamEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return nil, fmt.Errorf("decode stream message: %w", err)
	}
	symbol := parseStreamSymbol(env.Stream)
	price, err := strconv.ParseFloat(env.Data.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("bad price %q", env.Data.Price)
	}
	qty, err := strconv.ParseFloat(env.Data.Quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("bad quantity %q", env.Data.Quantity)
	}
	side := trade.Buy
	if env.Data.IsBuyerMaker {
		side = trade.Sell
	}
	return &trade.Trade{
		Symbol: symbol,
		Price:  price,
		Qty:    qty,
		Side:   side,
		Time:   env.Data.TradeTime,
		ID:     strconv.FormatInt(env.Data.TradeID, 10),
		Source: "binance-ws",
	}, nil
}

func parseStreamSymbol(stream string) string {
	parts := strings.Split(stream, "@")
	if len(parts) == 0 || parts[0] == "" {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(parts[0])
}
