package provider

// distroImage describes how to resolve the newest AMI for a distribution.
type distroImage struct {
	// owner is the AWS account publishing the official images.
	owner string
	// namePattern filters DescribeImages results.
	namePattern string
	// sshUser is the default login user of the image.
	sshUser string
}

// distroImages maps the distribution tags accepted by the test matrix to
// their official AMI sources.
var distroImages = map[string]distroImage{
	"ubuntu2004": {
		owner:       "099720109477",
		namePattern: "ubuntu/images/hvm-ssd/ubuntu-focal-20.04-amd64-server-*",
		sshUser:     "ubuntu",
	},
	"ubuntu2204": {
		owner:       "099720109477",
		namePattern: "ubuntu/images/hvm-ssd/ubuntu-jammy-22.04-amd64-server-*",
		sshUser:     "ubuntu",
	},
	"debian11": {
		owner:       "136693071363",
		namePattern: "debian-11-amd64-*",
		sshUser:     "admin",
	},
	"amazonlinux2": {
		owner:       "137112412989",
		namePattern: "amzn2-ami-kernel-*-hvm-*-x86_64-gp2",
		sshUser:     "ec2-user",
	},
	"centos8": {
		owner:       "125523088429",
		namePattern: "CentOS Stream 8 x86_64 *",
		sshUser:     "centos",
	},
}
