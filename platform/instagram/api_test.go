package instagram

import (
	"testing"

	"github.com/opensocialmonitor/vigil/platform"

	"github.com/stretchr/testify/assert"
)

func TestStatusErrMapping(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(statusErr(200, nil))
	assert.NoError(statusErr(201, []byte(`{"status":"ok"}`)))

	assert.ErrorIs(statusErr(404, []byte(`{"message":"Not Found"}`)), platform.ErrNotFound)
	assert.ErrorIs(statusErr(429, nil), platform.ErrRateLimited)
	assert.ErrorIs(statusErr(401, []byte(`{"message":"login_required","status":"fail"}`)), platform.ErrLoginRequired)
	assert.ErrorIs(statusErr(403, nil), platform.ErrLoginRequired)
	assert.ErrorIs(statusErr(400, []byte(`{"message":"login_required"}`)), platform.ErrLoginRequired)
	assert.ErrorIs(statusErr(400, []byte(`{"message":"Please wait a few minutes before you try again."}`)), platform.ErrRateLimited)

	err := statusErr(500, []byte(`{"message":"server error"}`))
	assert.Error(err)
	assert.NotErrorIs(err, platform.ErrNotFound)
	assert.NotErrorIs(err, platform.ErrLoginRequired)
	assert.NotErrorIs(err, platform.ErrRateLimited)

	// garbage bodies never panic
	assert.Error(statusErr(500, []byte("<html>nope</html>")))
}
