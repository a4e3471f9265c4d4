package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/flowcard/flowcard/card"
	"github.com/flowcard/flowcard/render"
	"github.com/flowcard/flowcard/util"
)

// Service answers invocation requests from any transport.
type Service struct {
	engine *render.Engine
}

func NewService(engine *render.Engine) *Service {
	return &Service{engine: engine}
}

// Request is one wire message.  Id, when given, is echoed in the
// response so clients can multiplex.
type Request struct {
	Id         string           `json:"id,omitempty"`
	Invocation *card.Invocation `json:"invocation"`
}

type Response struct {
	Id     string       `json:"id,omitempty"`
	Result *card.Result `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Handle runs one request.  A failed invocation can still carry a
// result (validation failures do), and the response then has both.
func (s *Service) Handle(ctx context.Context, bs []byte) *Response {
	var req Request
	if err := json.Unmarshal(bs, &req); err != nil {
		return &Response{Error: "can't parse request: " + err.Error()}
	}
	if req.Invocation == nil {
		return &Response{Id: req.Id, Error: "no invocation in request"}
	}

	result, err := s.engine.HandleInvocation(ctx, req.Invocation)
	res := &Response{Id: req.Id, Result: result}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// WebSocketHandler upgrades connections and answers each message
// with one response message.
func (s *Service) WebSocketHandler(ctx context.Context) http.HandlerFunc {
	var upgrader = websocket.Upgrader{} // use default options

	return func(w http.ResponseWriter, r *http.Request) {
		util.Logf("Service.WebSocketHandler connection from %s", r.RemoteAddr)

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error", err)
			return
		}
		defer c.Close()

		for {
			mt, message, err := c.ReadMessage()
			if err != nil {
				util.Logf("read error %v", err)
				break
			}

			res := s.Handle(ctx, message)

			js, err := json.Marshal(res)
			if err != nil {
				log.Printf("marshal error %v on %#v", err, res)
				continue
			}
			if err = c.WriteMessage(mt, js); err != nil {
				log.Println("write:", err)
				break
			}
		}
	}
}
