package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store определяет интерфейс хранилища файлов документов
type Store interface {
	Save(r io.Reader, originalName string) (string, error)
	Remove(storagePath string) error
}

type diskStore struct {
	dir string
}

// NewDiskStore создаёт хранилище в каталоге dir
func NewDiskStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &diskStore{dir: dir}, nil
}

// Save записывает файл под сгенерированным именем, сохраняя расширение
// исходного файла, и возвращает путь хранения
func (s *diskStore) Save(r io.Reader, originalName string) (string, error) {
	name := uuid.New().String() + filepath.Ext(originalName)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

// Remove удаляет файл; отсутствие файла не считается ошибкой
func (s *diskStore) Remove(storagePath string) error {
	err := os.Remove(storagePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
