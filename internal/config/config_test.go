package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntEnv(t *testing.T) {
	t.Setenv("TEST_INT", "12")
	assert.Equal(t, 12, intEnv("TEST_INT", 3))

	t.Setenv("TEST_INT", "nope")
	assert.Equal(t, 3, intEnv("TEST_INT", 3))

	t.Setenv("TEST_INT", "-1")
	assert.Equal(t, 3, intEnv("TEST_INT", 3))

	assert.Equal(t, 7, intEnv("TEST_INT_UNSET", 7))
}

func TestDurationEnv(t *testing.T) {
	t.Setenv("TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, durationEnv("TEST_DUR", time.Minute))

	t.Setenv("TEST_DUR", "soon")
	assert.Equal(t, time.Minute, durationEnv("TEST_DUR", time.Minute))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}

func TestDBConfigDSN(t *testing.T) {
	c := &DBConfig{Host: "db", User: "u", Password: "p", Name: "evals", Port: "5432", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "host=db user=u password=p dbname=evals port=5432 sslmode=disable TimeZone=UTC", c.DSN())
}
