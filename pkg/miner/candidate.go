package miner

import (
	"github.com/vanitydag/vanityd/pkg/bufferutil"
	"github.com/vanitydag/vanityd/pkg/envelope"
)

// EnvelopeCandidateBuilder returns the default candidate builder: the nonce
// is spliced into the payload as a fixed-width 8-byte little-endian suffix,
// the envelope is rebuilt from scratch and its id becomes the candidate.
func EnvelopeCandidateBuilder(
	version byte, contractType, payloadTemplate []byte,
) CandidateBuilder {
	template := make([]byte, len(payloadTemplate))
	copy(template, payloadTemplate)

	return func(nonce uint64) (string, error) {
		payload := make([]byte, 0, len(template)+8)
		payload = append(payload, template...)
		payload = append(payload, bufferutil.ValueToBytes(nonce)...)

		env, err := envelope.Build(version, contractType, payload)
		if err != nil {
			return "", err
		}
		return env.ID(), nil
	}
}
