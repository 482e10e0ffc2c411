package cli_config

import (
	"os"
	"os/user"
	"path"
)

// AwsmapConfigPath returns a path to a file in ~/.awsmap/<filename>
func AwsmapConfigPath(file string) (string, error) {
	osUser, err := user.Current()
	if err != nil {
		return "", err
	}
	return path.Join(osUser.HomeDir, ".awsmap", file), nil
}

func CreateAwsmapConfigPath() error {
	osUser, err := user.Current()
	if err != nil {
		return err
	}
	awsmapPath := path.Join(osUser.HomeDir, ".awsmap")

	// create the directory if it doesn't exist
	_, err = os.Stat(awsmapPath)
	if os.IsNotExist(err) {
		err = os.MkdirAll(awsmapPath, os.ModePerm)
	}
	if err != nil {
		return err
	}
	return nil
}
