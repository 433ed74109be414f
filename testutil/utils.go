package testutil

import (
	"io"
	"os"
	"strings"

	errors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Capture the stdout (including log output) and stderr content produced by
// a given function.
func CaptureOutput(f func()) (stdout []byte, stderr []byte, err error) {
	rescueStdout := os.Stdout
	rescueStderr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr
	rescueLogOutput := logrus.StandardLogger().Out
	logrus.StandardLogger().SetOutput(wOut)
	// Restore the standard pipelines at the end.
	defer func() {
		os.Stdout = rescueStdout
		os.Stderr = rescueStderr
		logrus.StandardLogger().SetOutput(rescueLogOutput)
	}()

	// Execute function
	f()

	// Close the internal pipelines.
	wOut.Close()
	wErr.Close()

	// Reads the stdout
	stdout, err = io.ReadAll(rOut)
	if err != nil {
		err = errors.Wrap(err, "cannot read stdout")
		return
	}

	stderr, err = io.ReadAll(rErr)
	err = errors.Wrap(err, "cannot read stderr")
	return stdout, stderr, err
}

// Allows reverting the changes in the environment variables to a
// previous state. It remembers the current environment and returns a
// function that must be called to restore it.
func CreateEnvironmentRestorePoint() func() {
	originalEnv := os.Environ()

	return func() {
		originalEnvDict := make(map[string]string, len(originalEnv))
		for _, pair := range originalEnv {
			key, value, _ := strings.Cut(pair, "=")
			originalEnvDict[key] = value
		}

		actualEnv := os.Environ()
		actualKeys := make(map[string]bool, len(actualEnv))
		for _, actualPair := range actualEnv {
			actualKey, actualValue, _ := strings.Cut(actualPair, "=")
			actualKeys[actualKey] = true
			originalValue, exist := originalEnvDict[actualKey]

			if !exist {
				// Environment variable was added.
				os.Unsetenv(actualKey)
			} else if actualValue != originalValue {
				// Environment variable was changed.
				os.Setenv(actualKey, originalValue)
			}
		}

		for originalKey, originalValue := range originalEnvDict {
			if _, exist := actualKeys[originalKey]; !exist {
				// Environment variable was removed.
				os.Setenv(originalKey, originalValue)
			}
		}
	}
}
