package signaling

import (
	"github.com/mitchellh/mapstructure"
	"github.com/mossy-p/social-signaling/internal/models"
	"github.com/pkg/errors"
)

var (
	ErrHubStopped = errors.New("signaling: hub stopped")
	errMalformed  = errors.New("malformed payload")
)

// decodePayload maps an inbound object onto out using json tags.
func decodePayload(data any, out any) error {
	if _, ok := data.(map[string]any); !ok {
		return errors.Wrapf(errMalformed, "expected object, got %T", data)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "build decoder")
	}
	if err := dec.Decode(data); err != nil {
		return errors.Wrap(errMalformed, err.Error())
	}
	return nil
}

// userOnline and joinChat accept either a bare id or an object.

func decodeUserID(data any) (string, error) {
	if s, ok := data.(string); ok {
		return s, nil
	}
	var p models.UserOnlinePayload
	if err := decodePayload(data, &p); err != nil {
		return "", err
	}
	return p.UserID, nil
}

func decodeChatID(data any) (string, error) {
	if s, ok := data.(string); ok {
		return s, nil
	}
	var p models.ChatPayload
	if err := decodePayload(data, &p); err != nil {
		return "", err
	}
	return p.ChatID, nil
}
