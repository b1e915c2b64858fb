package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// NewDemoRegistry registers the built-in demo operations for all four
// input types. These are intentionally shallow: they exercise the
// step/validation/correction machinery end to end without the real
// ingestion stacks, which run as external handlers in production.
func NewDemoRegistry() *Registry {
	r := NewRegistry()

	r.Register("document.extract", demoExtract)
	r.Register("document.analyze", demoAnalyze)
	r.Register("document.summarize", demoSummarize)

	r.Register("code.parse", demoCodeParse)
	r.Register("code.dependencies", demoCodeDependencies)
	r.Register("code.patterns", demoCodePatterns)

	r.Register("web.fetch", demoWebFetch)
	r.Register("web.extract", demoWebExtract)
	r.Register("web.rank", demoWebRank)

	r.Register("media.metadata", demoMediaMetadata)
	r.Register("media.transcript", demoMediaTranscript)
	r.Register("media.keypoints", demoMediaKeypoints)

	r.Register("artifact.compose", demoCompose)

	return r
}

func inputOf(params map[string]interface{}) string {
	if v, ok := params["input"].(string); ok {
		return v
	}
	return ""
}

func demoExtract(ctx context.Context, params map[string]interface{}, _ map[int]interface{}) (interface{}, error) {
	input := inputOf(params)
	return map[string]interface{}{
		"source":   input,
		"sections": []interface{}{"introduction", "body", "conclusion"},
	}, nil
}

func demoAnalyze(ctx context.Context, params map[string]interface{}, execContext map[int]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"concepts": []interface{}{"main topic", "supporting argument"},
	}, nil
}

func demoSummarize(ctx context.Context, params map[string]interface{}, execContext map[int]interface{}) (interface{}, error) {
	input := inputOf(params)
	return map[string]interface{}{
		"summary": fmt.Sprintf("Summary of the key findings extracted from %s", input),
	}, nil
}

func demoCodeParse(ctx context.Context, params map[string]interface{}, _ map[int]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"tree": map[string]interface{}{
			"root": inputOf(params),
		},
	}, nil
}

func demoCodeDependencies(ctx context.Context, params map[string]interface{}, _ map[int]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"imports": []interface{}{"stdlib", "third_party"},
	}, nil
}

func demoCodePatterns(ctx context.Context, params map[string]interface{}, _ map[int]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"patterns": []interface{}{"factory", "adapter"},
	}, nil
}

func demoWebFetch(ctx context.Context, params map[string]interface{}, _ map[int]interface{}) (interface{}, error) {
	input := inputOf(params)
	return map[string]interface{}{
		"content": fmt.Sprintf("Fetched page content for %s with headline and article body", input),
	}, nil
}

func demoWebExtract(ctx context.Context, params map[string]interface{}, _ map[int]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"title": "Extracted title",
			"links": []interface{}{"about", "contact"},
		},
	}, nil
}

func demoWebRank(ctx context.Context, params map[string]interface{}, _ map[int]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"ranked": []interface{}{"headline", "article body"},
	}, nil
}

func demoMediaMetadata(ctx context.Context, params map[string]interface{}, _ map[int]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"title":    fmt.Sprintf("Video %s", inputOf(params)),
		"duration": 600,
	}, nil
}

func demoMediaTranscript(ctx context.Context, params map[string]interface{}, _ map[int]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"transcript": "Cleaned caption text for the full video with speaker turns",
	}, nil
}

func demoMediaKeypoints(ctx context.Context, params map[string]interface{}, _ map[int]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"points": []interface{}{"opening statement", "core argument", "closing remark"},
	}, nil
}

// demoCompose folds all prior step outputs into the final artifact
func demoCompose(ctx context.Context, params map[string]interface{}, execContext map[int]interface{}) (interface{}, error) {
	indexes := make([]int, 0, len(execContext))
	for i := range execContext {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	var parts []string
	for _, i := range indexes {
		parts = append(parts, fmt.Sprintf("step %d: %v", i, execContext[i]))
	}

	return map[string]interface{}{
		"type":    "report",
		"content": strings.Join(parts, "\n"),
	}, nil
}
