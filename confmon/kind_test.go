// SPDX-License-Identifier: GPL-3.0-or-later

package confmon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "File", KindFile.String())
	assert.Equal(t, "CCCP", KindCCCP.String())
	assert.Equal(t, "HTTP", KindHTTP.String())
	assert.Equal(t, "User", KindUser.String())
	assert.Equal(t, "Unknown", Kind(99).String())
}
