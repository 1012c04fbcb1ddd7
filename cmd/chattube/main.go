package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flarexio/chattube"

	mcpE "github.com/flarexio/chattube/mcp"
	httpT "github.com/flarexio/chattube/transport/http"
	natsT "github.com/flarexio/chattube/transport/nats"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "chattube",
		Usage: "Chat with YouTube videos",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Path to the ChatTube data directory",
				Sources: cli.EnvVars("CHATTUBE_PATH"),
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:  "nats-creds",
				Usage: "NATS user credentials file",
			},
			&cli.StringFlag{
				Name:  "nats-prefix",
				Usage: "Subject prefix of the NATS service group",
				Value: "flarex",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the HTTP API, and the NATS API when --nats is given",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "http-addr",
						Usage:   "HTTP server address",
						Value:   ":8000",
						Sources: cli.EnvVars("HTTP_ADDR"),
					},
				},
				Action: serve,
			},
			{
				Name:  "chat",
				Usage: "Chat with a video in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Usage:    "YouTube video URL",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "nats-timeout",
						Usage: "How long to wait for a reply over NATS",
						Value: natsT.DefaultRequestTimeout,
					},
				},
				Action: chat,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP over stdio",
				Action: serveMCP,
			},
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func dataPath(cmd *cli.Command) (string, error) {
	path := cmd.String("path")
	if path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".flarex", "chattube"), nil
}

func newLogger() (*zap.Logger, error) {
	log, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(log)
	return log, nil
}

func connectNATS(cmd *cli.Command, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
	}

	if creds := cmd.String("nats-creds"); creds != "" {
		opts = append(opts, nats.UserCredentials(creds))
	}

	return nats.Connect(cmd.String("nats"), opts...)
}

func topic(cmd *cli.Command) string {
	return cmd.String("nats-prefix") + ".chattube"
}

func serve(ctx context.Context, cmd *cli.Command) error {
	path, err := dataPath(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, closeFn, err := newService(ctx, path, log)
	if err != nil {
		return err
	}
	defer closeFn()

	endpoints := chattube.MakeEndpoints(svc)

	// Add NATS Transport
	if natsURL := cmd.String("nats"); natsURL != "" {
		nc, err := connectNATS(cmd, "ChatTube Server")
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "chattube",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup(topic(cmd))
		if err := natsT.AddEndpoints(root, endpoints); err != nil {
			return err
		}

		log.Info("nats transport ready",
			zap.String("url", natsURL),
			zap.String("topic", topic(cmd)),
		)
	}

	// Add HTTP Transport
	{
		r := gin.Default()
		httpT.AddRouters(r, endpoints)
		httpT.AddStreamableRouters(r, mcpE.Endpoints(svc))

		httpAddr := cmd.String("http-addr")
		go func() {
			if err := r.Run(httpAddr); err != nil {
				log.Error(err.Error())
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}

func chat(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	var svc chattube.Service
	if cmd.String("nats") != "" {
		nc, err := connectNATS(cmd, "ChatTube Client")
		if err != nil {
			return err
		}
		defer nc.Drain()

		endpoints := natsT.MakeEndpoints(nc, topic(cmd), cmd.Duration("nats-timeout"))
		svc = chattube.ProxyMiddleware(endpoints)(nil)
	} else {
		path, err := dataPath(cmd)
		if err != nil {
			return err
		}

		s, closeFn, err := newService(ctx, path, log)
		if err != nil {
			return err
		}
		defer closeFn()

		svc = s
	}

	return repl(ctx, svc, cmd.String("url"), os.Stdin, os.Stdout)
}

func repl(ctx context.Context, svc chattube.Service, videoURL string, in io.Reader, out io.Writer) error {
	s, err := svc.LoadVideo(ctx, videoURL)
	if err != nil {
		return err
	}
	defer svc.EndSession(ctx, s.ID)

	fmt.Fprintf(out, "Loaded: %s\n", s.Title)
	fmt.Fprintln(out, "Ask anything about the video. Type 'exit' or 'quit' to leave.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "User: ")

		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}

		switch strings.ToLower(question) {
		case "exit", "quit":
			return nil
		}

		answer, err := svc.Chat(ctx, s.ID, question)
		if err != nil {
			fmt.Fprintf(out, "Error: %s\n", err.Error())
			continue
		}

		fmt.Fprintf(out, "AI: %s\n", answer)
	}

	return scanner.Err()
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	path, err := dataPath(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, closeFn, err := newService(ctx, path, log)
	if err != nil {
		return err
	}
	defer closeFn()

	server := mcpE.NewStdioServer(os.Stdin, os.Stdout)
	for method, endpoint := range mcpE.Endpoints(svc) {
		if err := server.AddEndpoint(method, endpoint); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("mcp stdio server ready")
	return server.Listen(ctx)
}
