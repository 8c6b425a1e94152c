// Package bedrock implements gateway.Gateway over AWS Bedrock Runtime's
// InvokeModelWithResponseStream API. Unlike the other gateways, the wire
// format of both the request body and the streamed chunks depends on which
// model family backs the given model ID, so Complete dispatches on the ID's
// prefix to a per-family request builder and chunk parser.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/praetorian-inc/deliberate/pkg/gateway"
	"github.com/praetorian-inc/deliberate/pkg/registry"
)

func init() {
	gateway.Register("bedrock.InvokeModelWithResponseStream", New)
}

const bedrockAnthropicVersion = "bedrock-2023-05-31"

// New constructs a Bedrock gateway from registry.Config.
func New(m registry.Config) (gateway.Gateway, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewTyped(context.Background(), cfg)
}

// NewTyped constructs a Bedrock gateway from typed configuration, loading
// AWS credentials and region the standard SDK way.
func NewTyped(ctx context.Context, cfg Config) (*Gateway, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("bedrock gateway requires model")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("bedrock gateway requires region")
	}

	optFns := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: load AWS config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Gateway{cfg: cfg, client: client}, nil
}

// NewWithOptions constructs a Bedrock gateway from functional options.
func NewWithOptions(ctx context.Context, opts ...Option) (*Gateway, error) {
	return NewTyped(ctx, ApplyOptions(DefaultConfig(), opts...))
}

// Gateway is the Bedrock implementation of gateway.Gateway.
type Gateway struct {
	cfg    Config
	client *bedrockruntime.Client
}

type family int

const (
	familyUnknown family = iota
	familyAnthropic
	familyTitan
	familyLlama
)

func classifyModel(modelID string) family {
	switch {
	case strings.HasPrefix(modelID, "anthropic."):
		return familyAnthropic
	case strings.HasPrefix(modelID, "amazon.titan"):
		return familyTitan
	case strings.HasPrefix(modelID, "meta.llama"):
		return familyLlama
	default:
		return familyUnknown
	}
}

// Complete streams one completion from the model family backing cfg.ModelID.
func (g *Gateway) Complete(ctx context.Context, prompt, system string, sampling gateway.Sampling) (<-chan gateway.Chunk, error) {
	fam := classifyModel(g.cfg.ModelID)
	if fam == familyUnknown {
		return nil, fmt.Errorf("bedrock: unsupported model family for %q", g.cfg.ModelID)
	}

	body, err := buildRequestBody(fam, g.cfg, prompt, system, sampling)
	if err != nil {
		return nil, fmt.Errorf("bedrock: build request: %w", err)
	}

	out, err := g.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(g.cfg.ModelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, handleError(err)
	}

	ch := make(chan gateway.Chunk)
	go func() {
		defer close(ch)
		stream := out.GetStream()
		defer stream.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-stream.Events():
				if !ok {
					if err := stream.Err(); err != nil {
						emit(ctx, ch, gateway.Chunk{Err: handleError(err), Done: true})
					} else {
						emit(ctx, ch, gateway.Chunk{Done: true})
					}
					return
				}
				chunk, done, parseErr := parseEvent(fam, event)
				if parseErr != nil {
					emit(ctx, ch, gateway.Chunk{Err: fmt.Errorf("bedrock: parse stream event: %w", parseErr), Done: true})
					return
				}
				if chunk.Text != "" {
					if !emit(ctx, ch, gateway.Chunk{Text: chunk.Text}) {
						return
					}
				}
				if done {
					emit(ctx, ch, gateway.Chunk{Done: true})
					return
				}
			}
		}
	}()
	return ch, nil
}

func emit(ctx context.Context, out chan<- gateway.Chunk, c gateway.Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

type textChunk struct {
	Text string
}

func parseEvent(fam family, event types.ResponseStream) (textChunk, bool, error) {
	member, ok := event.(*types.ResponseStreamMemberChunk)
	if !ok || member.Value.Bytes == nil {
		return textChunk{}, false, nil
	}

	switch fam {
	case familyAnthropic:
		var payload struct {
			Type  string `json:"type"`
			Delta struct {
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal(member.Value.Bytes, &payload); err != nil {
			return textChunk{}, false, err
		}
		return textChunk{Text: payload.Delta.Text}, payload.Type == "message_stop", nil
	case familyTitan:
		var payload struct {
			OutputText       string `json:"outputText"`
			CompletionReason string `json:"completionReason"`
		}
		if err := json.Unmarshal(member.Value.Bytes, &payload); err != nil {
			return textChunk{}, false, err
		}
		return textChunk{Text: payload.OutputText}, payload.CompletionReason != "", nil
	case familyLlama:
		var payload struct {
			Generation string `json:"generation"`
			StopReason string `json:"stop_reason"`
		}
		if err := json.Unmarshal(member.Value.Bytes, &payload); err != nil {
			return textChunk{}, false, err
		}
		return textChunk{Text: payload.Generation}, payload.StopReason != "", nil
	default:
		return textChunk{}, false, fmt.Errorf("unreachable model family")
	}
}

func buildRequestBody(fam family, cfg Config, prompt, system string, sampling gateway.Sampling) ([]byte, error) {
	switch fam {
	case familyAnthropic:
		req := map[string]any{
			"anthropic_version": bedrockAnthropicVersion,
			"max_tokens":        cfg.MaxTokens,
			"messages":          []map[string]string{{"role": "user", "content": prompt}},
		}
		if system != "" {
			req["system"] = system
		}
		if sampling.Temperature != 0 {
			req["temperature"] = sampling.Temperature
		}
		if sampling.TopP != 0 {
			req["top_p"] = sampling.TopP
		}
		return json.Marshal(req)
	case familyTitan:
		fullPrompt := prompt
		if system != "" {
			fullPrompt = system + "\n\n" + prompt
		}
		req := map[string]any{
			"inputText": fullPrompt,
			"textGenerationConfig": map[string]any{
				"maxTokenCount": cfg.MaxTokens,
				"temperature":   sampling.Temperature,
				"topP":          sampling.TopP,
			},
		}
		return json.Marshal(req)
	case familyLlama:
		fullPrompt := prompt
		if system != "" {
			fullPrompt = system + "\n\n" + prompt
		}
		req := map[string]any{
			"prompt":      fullPrompt,
			"max_gen_len": cfg.MaxTokens,
			"temperature": sampling.Temperature,
			"top_p":       sampling.TopP,
		}
		return json.Marshal(req)
	default:
		return nil, fmt.Errorf("unsupported model family")
	}
}

// handleError maps AWS Bedrock exceptions to wrapped errors carrying the
// underlying message, mirroring the status classes surfaced by the
// console: throttling and capacity errors are worth retrying upstream,
// validation and access errors are not.
func handleError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ThrottlingException"):
		return fmt.Errorf("bedrock: throttled: %w", err)
	case strings.Contains(msg, "AccessDeniedException"):
		return fmt.Errorf("bedrock: access denied: %w", err)
	case strings.Contains(msg, "ValidationException"):
		return fmt.Errorf("bedrock: invalid request: %w", err)
	case strings.Contains(msg, "ServiceUnavailableException"):
		return fmt.Errorf("bedrock: service unavailable: %w", err)
	default:
		return fmt.Errorf("bedrock: %w", err)
	}
}

func (g *Gateway) Name() string { return "bedrock.InvokeModelWithResponseStream" }

func (g *Gateway) Description() string {
	return "AWS Bedrock gateway streaming completions across Anthropic, Titan, and Llama model families"
}
