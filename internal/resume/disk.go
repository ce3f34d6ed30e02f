package resume

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Storage 抽象简历文件存储，键为不透明字符串。
type Storage interface {
	Store(r io.Reader) (string, error)
	Exists(key string) bool
	Delete(key string) error
	Copy(key string) (string, error)
	Download(key string) (io.ReadCloser, error)
}

// DiskStore 把简历保存在本地目录，键为随机 UUID，不暴露原始文件名。
type DiskStore struct {
	root string
}

// NewDiskStore 创建 DiskStore 并确保根目录存在。
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create resume dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// Store 写入简历内容并返回新键。
func (d *DiskStore) Store(r io.Reader) (string, error) {
	key := uuid.NewString()
	f, err := os.Create(filepath.Join(d.root, key))
	if err != nil {
		return "", fmt.Errorf("create resume file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write resume file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close resume file: %w", err)
	}
	return key, nil
}

// Exists 判断键对应的文件是否存在。非法键一律视为不存在。
func (d *DiskStore) Exists(key string) bool {
	path, err := d.path(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Delete 删除键对应的文件，文件缺失视为成功。
func (d *DiskStore) Delete(key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete resume file: %w", err)
	}
	return nil
}

// Copy 复制键对应的文件，返回副本的新键。
func (d *DiskStore) Copy(key string) (string, error) {
	src, err := d.Download(key)
	if err != nil {
		return "", err
	}
	defer src.Close()
	return d.Store(src)
}

// Download 打开键对应的文件供读取，调用方负责关闭。
func (d *DiskStore) Download(key string) (io.ReadCloser, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open resume file: %w", err)
	}
	return f, nil
}

// path 校验键必须是合法 UUID，杜绝路径穿越。
func (d *DiskStore) path(key string) (string, error) {
	if _, err := uuid.Parse(key); err != nil {
		return "", fmt.Errorf("invalid resume key %q", key)
	}
	return filepath.Join(d.root, key), nil
}
