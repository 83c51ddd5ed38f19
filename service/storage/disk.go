package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

type diskService struct {
	folder string
}

// NewDisk stores snapshots as JPEG files under folder, creating it on
// first use.
func NewDisk(folder string) IService {
	return &diskService{
		folder: folder,
	}
}

func (svc *diskService) StoreFrame(name string, frame gocv.Mat) (string, error) {
	if frame.Empty() {
		return "", fmt.Errorf("refusing to store empty frame")
	}

	if err := os.MkdirAll(svc.folder, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(svc.folder, name)
	if ok := gocv.IMWrite(path, frame); !ok {
		return "", fmt.Errorf("error encoding snapshot %s", path)
	}

	return path, nil
}
