package service

import (
	"context"
	"log"
	"time"

	"github.com/tidwall/gjson"

	"orb_bot/internal/models"
)

// Stream — пуш-стрим тиков от моста с реконнектом и keepalive-пингом.
// Канал закрывается только по ctx; обрыв соединения — пауза и новый dial.
func (c *Client) Stream(ctx context.Context) <-chan models.Observation {
	out := make(chan models.Observation)
	go func() {
		defer close(out)

		for {
			log.Printf("[WS] connect %s", c.wsURL())
			conn, _, err := c.wsDialer.Dial(c.wsURL(), nil)
			if err != nil {
				log.Printf("[WS] dial error: %v", err)
				c.state.SetWSConnected(false)
				select {
				case <-ctx.Done():
					return
				default:
					time.Sleep(time.Second)
					continue
				}
			}
			c.state.SetWSConnected(true)
			c.state.SetReady(true)

			// keepalive ping каждые 20s — мост режет молчаливые соединения
			connDone := make(chan struct{})
			go func() {
				t := time.NewTicker(20 * time.Second)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						// выбиваем блокирующий ReadMessage, иначе стример
						// не заметит отмену до следующего фрейма
						_ = conn.Close()
						return
					case <-connDone:
						return
					case <-t.C:
						_ = conn.WriteJSON(map[string]string{"op": "ping"})
					}
				}
			}()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					log.Printf("[WS] read error: %v", err)
					_ = conn.Close()
					close(connDone)
					c.state.SetWSConnected(false)
					break
				}

				obs, ok := parseTick(msg)
				if !ok {
					continue
				}
				c.state.TouchTick(obs.TS)

				select {
				case out <- obs:
				case <-ctx.Done():
					_ = conn.Close()
					close(connDone)
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(time.Second)
			}
		}
	}()
	return out
}

// parseTick разбирает фрейм вида
// {"type":"tick","symbol":"RRGB","kind":"last","price":12.01,"ts":1735821000123}.
// Фильтрации по kind/цене тут нет — это решение движка.
func parseTick(msg []byte) (models.Observation, bool) {
	root := gjson.ParseBytes(msg)
	if root.Get("type").String() != "tick" {
		return models.Observation{}, false
	}

	symbol := root.Get("symbol").String()
	if symbol == "" {
		return models.Observation{}, false
	}

	return models.Observation{
		Symbol: symbol,
		Kind:   models.TickKind(root.Get("kind").String()),
		Price:  root.Get("price").Float(),
		TS:     time.UnixMilli(root.Get("ts").Int()).UTC(),
	}, true
}
