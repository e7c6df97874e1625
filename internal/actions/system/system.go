// Package system touches the local filesystem on behalf of a plan.
package system

import (
	"context"
	"fmt"
	"os"

	"github.com/xyla-io/raspador/internal/utils"
)

func ReadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read file: %w", err)
	}
	return map[string]any{"content": string(data)}, nil
}

func DeleteFile(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

func CreateFolder(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("could not create folder: %w", err)
	}
	return nil
}

func DeleteFolder(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("could not delete folder: %w", err)
	}
	return nil
}

// WriteFile appends content and a newline, creating the file if needed.
func WriteFile(path string, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not open or create file for writing: %w", err)
	}
	if _, err := file.WriteString(content + "\n"); err != nil {
		file.Close()
		return fmt.Errorf("could not write to file: %w", err)
	}
	return file.Close()
}

func HandleSystemAction(_ context.Context, operation string, payload map[string]any) (map[string]any, error) {
	path, err := utils.GetStringPayload(payload, "path")
	if err != nil {
		return nil, err
	}
	switch operation {
	case "read_file":
		return ReadFile(path)
	case "write_file":
		content, err := utils.GetStringPayload(payload, "content")
		if err != nil {
			return nil, err
		}
		return map[string]any{"path": path}, WriteFile(path, content)
	case "create_folder":
		return map[string]any{"path": path}, CreateFolder(path)
	case "delete_file":
		return nil, DeleteFile(path)
	case "delete_folder":
		return nil, DeleteFolder(path)
	default:
		return nil, fmt.Errorf("unknown system operation: %s", operation)
	}
}
