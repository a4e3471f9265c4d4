// cardd serves card rendering over WebSockets and (optionally) MQTT.
//
// A client sends an invocation as one JSON message and gets back one
// JSON response: either {"result": ...} or {"error": ...}.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/flowcard/flowcard/asset"
	"github.com/flowcard/flowcard/interpreters"
	"github.com/flowcard/flowcard/render"
	"github.com/flowcard/flowcard/store"
	"github.com/flowcard/flowcard/util"
)

func main() {
	var (
		httpPort = flag.String("h", ":8080", "HTTP port for the WebSocket service")
		httpDir  = flag.String("f", "", "directory to serve via HTTP")
		dbFile   = flag.String("d", "cards.db", "storage filename")
		assetDir = flag.String("assets", "", "asset registry directory")
		catalog  = flag.String("catalog", "", "catalog filename")

		mqBroker = flag.String("mq", "", "optional MQTT broker (e.g. tcp://localhost:1883)")
		mqID     = flag.String("mq-id", "cardd", "MQTT client id")
		mqReq    = flag.String("mq-req", "cards/requests", "MQTT request topic")
		mqRes    = flag.String("mq-res", "cards/responses", "MQTT response topic")
	)

	flag.BoolVar(&util.Logging, "v", false, "log lots of wonderful things")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := store.NewBolt(*dbFile)
	if err := s.Open(ctx); err != nil {
		log.Fatal(err)
	}
	defer s.Close(ctx)

	engine := &render.Engine{
		Assets: &asset.Registry{
			Dir:         *assetDir,
			CatalogFile: *catalog,
		},
		Interpreters: interpreters.Standard(),
		Store:        s,
	}

	service := NewService(engine)

	if *mqBroker != "" {
		coupling := &MQCoupling{
			Service:  service,
			Broker:   *mqBroker,
			ID:       *mqID,
			ReqTopic: *mqReq,
			ResTopic: *mqRes,
		}
		if err := coupling.Start(ctx); err != nil {
			log.Fatal(err)
		}
		defer coupling.Stop()
	}

	http.HandleFunc("/api", service.WebSocketHandler(ctx))
	if *httpDir != "" {
		http.Handle("/", http.FileServer(http.Dir(*httpDir)))
	}

	log.Printf("cardd listening on %s", *httpPort)
	log.Fatal(http.ListenAndServe(*httpPort, nil))
}
