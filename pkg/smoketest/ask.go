package smoketest

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/ethpandaops/testnetoor/pkg/prompt"
)

// Ask puts every question to the operator in order. Answers already in
// prefilled are kept and not asked again.
func Ask(ctx context.Context, p prompt.Prompter, prefilled map[string]string) (map[string]string, error) {
	options := lo.Map(Answers(), func(a Answer, _ int) string { return string(a) })
	answers := make(map[string]string, len(Questions))

	for _, q := range Questions {
		if given, ok := prefilled[q]; ok {
			a, err := ParseAnswer(given)
			if err != nil {
				return nil, fmt.Errorf("question %q: %w", q, err)
			}

			answers[q] = string(a)

			continue
		}

		choice, err := p.Select(ctx, q, options)
		if err != nil {
			return nil, fmt.Errorf("asking %q: %w", q, err)
		}

		answers[q] = choice
	}

	return answers, nil
}
